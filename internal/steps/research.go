package steps

import (
	"context"
	"fmt"

	"github.com/journalforge/api/internal/artifact"
	"github.com/journalforge/api/internal/model"
	"github.com/journalforge/api/internal/parser"
)

// ResearchExecutor gathers themed findings that ground the journal content.
// The number of findings requested scales with the configured research depth.
type ResearchExecutor struct {
	deps Deps
}

func (e *ResearchExecutor) ID() model.StepID { return model.StepResearch }

func (e *ResearchExecutor) Run(ctx context.Context, prefs model.Preferences, store *artifact.Store, report ProgressFunc) (Result, error) {
	depth := prefs.ResearchDepth
	if depth == "" {
		depth = model.DepthStandard
	}
	target := e.deps.Config.FindingsTarget(string(depth))

	report(10, fmt.Sprintf("Researching theme (%s depth, %d findings)", depth, target))

	res, err := e.deps.Parser.Parse(ctx, e.deps.caller(e.mockResponse(prefs, target)), parser.Request{
		SystemPrompt: systemPrompt(prefs),
		Prompt:       e.buildPrompt(prefs, target),
		Dir:          store.Dir(artifact.CategoryTranscripts),
		Filename:     transcript(model.StepResearch, ""),
		ExpectedKeys: []string{"theme_overview", "findings.0.title", "findings.0.insight"},
		Flatten:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("research call failed: %w", err)
	}

	report(70, "Saving research data")

	data := map[string]any{
		"theme":          prefs.Theme,
		"depth":          string(depth),
		"theme_overview": res.Value.Get("theme_overview").Str(),
		"findings":       res.Value.Get("findings").Interface(),
	}

	title := journalTitle(prefs, store)
	path, err := store.WriteJSON(artifact.CategoryStructured,
		artifact.FileName(artifact.NameResearchData, title, prefs.Theme, ".json"), data)
	if err != nil {
		return nil, err
	}

	return Result{artifact.NameResearchData: path}, nil
}

func (e *ResearchExecutor) buildPrompt(prefs model.Preferences, target int) string {
	return fmt.Sprintf(`Research the theme "%s" for a guided journal.

Produce %d distinct findings: practices, obstacles, and evidence-backed ideas
a journal on this theme should build on. Each finding needs a short title,
the insight itself, and how a daily journal prompt could apply it.

Output as JSON: {"theme_overview": "...", "findings": [{"title": "...", "insight": "...", "application": "..."}]}`,
		prefs.Theme, target)
}

func (e *ResearchExecutor) mockResponse(prefs model.Preferences, target int) string {
	findings := ""
	for i := 0; i < target; i++ {
		if i > 0 {
			findings += ","
		}
		findings += fmt.Sprintf(`{"title": "Practice %d", "insight": "A small daily habit related to %s compounds over time.", "application": "Ask the reader to log one concrete instance."}`,
			i+1, prefs.Theme)
	}
	return fmt.Sprintf(`{"theme_overview": "An overview of %s as a daily practice.", "findings": [%s]}`,
		prefs.Theme, findings)
}
