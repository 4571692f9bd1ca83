package steps

import (
	"context"
	"fmt"

	"github.com/journalforge/api/internal/artifact"
	"github.com/journalforge/api/internal/model"
	"github.com/journalforge/api/internal/parser"
)

// DiscoveryExecutor settles the journal concept: title, subtitle, audience
// and editorial angle for the requested theme.
type DiscoveryExecutor struct {
	deps Deps
}

func (e *DiscoveryExecutor) ID() model.StepID { return model.StepDiscovery }

func (e *DiscoveryExecutor) Run(ctx context.Context, prefs model.Preferences, store *artifact.Store, report ProgressFunc) (Result, error) {
	report(10, "Exploring journal concepts")

	res, err := e.deps.Parser.Parse(ctx, e.deps.caller(e.mockResponse(prefs)), parser.Request{
		SystemPrompt: systemPrompt(prefs),
		Prompt:       e.buildPrompt(prefs),
		Dir:          store.Dir(artifact.CategoryTranscripts),
		Filename:     transcript(model.StepDiscovery, ""),
		ExpectedKeys: []string{"title", "subtitle", "audience", "angle"},
		Flatten:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery call failed: %w", err)
	}

	report(70, "Saving journal concept")

	concept := map[string]any{
		"theme":    prefs.Theme,
		"title":    res.Value.Get("title").Str(),
		"subtitle": res.Value.Get("subtitle").Str(),
		"audience": res.Value.Get("audience").Str(),
		"angle":    res.Value.Get("angle").Str(),
	}
	if prefs.Title != "" {
		// An explicit title always wins over the model's suggestion.
		concept["title"] = prefs.Title
	}

	path, err := store.WriteJSON(artifact.CategoryStructured,
		artifact.FileName(artifact.NameConcept, concept["title"].(string), prefs.Theme, ".json"), concept)
	if err != nil {
		return nil, err
	}

	return Result{artifact.NameConcept: path}, nil
}

func (e *DiscoveryExecutor) buildPrompt(prefs model.Preferences) string {
	titleStyle := prefs.TitleStyle
	if titleStyle == "" {
		titleStyle = "clear and inviting"
	}
	days := e.deps.Config.JournalDays

	return fmt.Sprintf(`Design the concept for a %d-day guided journal on the theme "%s".
Title style: %s.

Decide who the journal is for and what unique angle sets it apart from
generic journals on the same theme.

Output as JSON: {"title": "...", "subtitle": "...", "audience": "...", "angle": "..."}`,
		days, prefs.Theme, titleStyle)
}

func (e *DiscoveryExecutor) mockResponse(prefs model.Preferences) string {
	return fmt.Sprintf(`{"title": "The %s Path", "subtitle": "A %d-Day Guided Journey", "audience": "busy adults seeking structure", "angle": "small daily practices over grand resolutions"}`,
		prefs.Theme, e.deps.Config.JournalDays)
}
