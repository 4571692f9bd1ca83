// Package steps contains one executor per pipeline stage. Executors consume
// the job preferences plus the project's artifact store and produce named
// artifacts; they are idempotent with respect to the store, overwriting only
// their own artifacts on re-run.
package steps

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/journalforge/api/internal/artifact"
	"github.com/journalforge/api/internal/client"
	"github.com/journalforge/api/internal/config"
	"github.com/journalforge/api/internal/model"
	"github.com/journalforge/api/internal/parser"
)

// Result maps logical artifact names to the paths a step produced.
type Result map[string]string

// ProgressFunc reports intra-step progress (0-100) with a short message.
type ProgressFunc func(progress int, message string)

// Executor runs one pipeline stage.
type Executor interface {
	ID() model.StepID
	Run(ctx context.Context, prefs model.Preferences, store *artifact.Store, report ProgressFunc) (Result, error)
}

// Deps bundles the collaborators every executor shares.
type Deps struct {
	LLM    client.ChatCaller
	Parser *parser.Parser
	Config config.PipelineConfig
	Logger *slog.Logger
}

// All builds the full executor set keyed by step id.
func All(deps Deps) map[model.StepID]Executor {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	execs := []Executor{
		&DiscoveryExecutor{deps},
		&ResearchExecutor{deps},
		&CurationExecutor{deps},
		&EditingExecutor{deps},
		&MediaExecutor{deps},
		&PDFExecutor{deps},
		&EPUBExecutor{deps},
	}
	out := make(map[model.StepID]Executor, len(execs))
	for _, e := range execs {
		out[e.ID()] = e
	}
	return out
}

// caller returns the configured model client, or a static caller replaying
// mock so the pipeline still runs end-to-end in development and tests.
func (d Deps) caller(mock string) client.ChatCaller {
	if d.LLM != nil && d.LLM.IsConfigured() {
		return d.LLM
	}
	return client.Static(mock)
}

func systemPrompt(prefs model.Preferences) string {
	style := prefs.AuthorStyle
	if style == "" {
		style = "warm, encouraging, practical"
	}
	return fmt.Sprintf(`You are a professional author of guided journals and self-development workbooks.
Your writing voice is %s.
Always output your response as valid JSON in the exact format requested.
Do not include any text outside the JSON structure.`, style)
}

// transcript builds the model-transcript file name for one call site.
func transcript(step model.StepID, site string) string {
	if site == "" {
		return string(step) + ".txt"
	}
	return fmt.Sprintf("%s_%s.txt", step, site)
}

// journalTitle resolves the working title: explicit preference first, then
// the discovery concept on disk, then a theme-derived fallback.
func journalTitle(prefs model.Preferences, store *artifact.Store) string {
	if prefs.Title != "" {
		return prefs.Title
	}
	var concept struct {
		Title string `json:"title"`
	}
	if err := store.ReadJSON(artifact.CategoryStructured, artifact.NameConcept, &concept); err == nil && concept.Title != "" {
		return concept.Title
	}
	return prefs.Theme + " Journal"
}
