package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/journalforge/api/internal/artifact"
	"github.com/journalforge/api/internal/model"
	"github.com/journalforge/api/internal/parser"
)

// EditingExecutor polishes the curated journal and lead magnet into their
// final versions. The model receives each draft document whole and returns
// the same JSON shape, edited.
type EditingExecutor struct {
	deps Deps
}

func (e *EditingExecutor) ID() model.StepID { return model.StepEditing }

func (e *EditingExecutor) Run(ctx context.Context, prefs model.Preferences, store *artifact.Store, report ProgressFunc) (Result, error) {
	title := journalTitle(prefs, store)
	out := Result{}

	report(10, "Editing journal")
	journalPath, err := e.polish(ctx, prefs, store, "journal",
		artifact.NameJournal, artifact.NameFinalJournal, title,
		[]string{"cover.title", "days.0.prompt"})
	if err != nil {
		return nil, err
	}
	out[artifact.NameFinalJournal] = journalPath

	report(60, "Editing lead magnet")
	magnetPath, err := e.polish(ctx, prefs, store, "lead_magnet",
		artifact.NameLeadMagnet, artifact.NameFinalLeadMagnet, title,
		[]string{"title", "sections.0.body"})
	if err != nil {
		return nil, err
	}
	out[artifact.NameFinalLeadMagnet] = magnetPath

	return out, nil
}

// polish runs one editing pass over a draft artifact and writes the final
// version. When the model client is unconfigured the draft passes through
// unchanged, which keeps the artifact chain intact.
func (e *EditingExecutor) polish(ctx context.Context, prefs model.Preferences, store *artifact.Store, site, draftName, finalName, title string, expected []string) (string, error) {
	// The draft must come from curation, not from a final_ artifact a
	// previous run left behind; a plain substring lookup would resolve
	// "journal" to final_journal first.
	var draft json.RawMessage
	if err := store.ReadJSONDraft(artifact.CategoryStructured, draftName, &draft); err != nil {
		return "", fmt.Errorf("editing requires a %s draft: %w", draftName, err)
	}

	prompt := fmt.Sprintf(`Edit the following %s document for consistency of voice, clarity and flow.
Keep the JSON structure and field names exactly as they are; change only the text.

%s

Output the full edited document as JSON.`, site, string(draft))

	res, err := e.deps.Parser.Parse(ctx, e.deps.caller(string(draft)), parser.Request{
		SystemPrompt: systemPrompt(prefs),
		Prompt:       prompt,
		Dir:          store.Dir(artifact.CategoryTranscripts),
		Filename:     transcript(model.StepEditing, site),
		ExpectedKeys: expected,
		Flatten:      true,
	})
	if err != nil {
		return "", fmt.Errorf("editing %s call failed: %w", site, err)
	}

	return store.WriteJSON(artifact.CategoryStructured,
		artifact.FileName(finalName, title, prefs.Theme, ".json"), res.Value.Interface())
}
