package steps

import (
	"context"
	"testing"
	"time"

	"github.com/journalforge/api/internal/artifact"
	"github.com/journalforge/api/internal/config"
	"github.com/journalforge/api/internal/model"
	"github.com/journalforge/api/internal/parser"
)

// A continuation re-run can find both the curation drafts and the finals a
// previous editing pass wrote. Editing must start from the drafts, not from
// the leftover finals.
func TestEditingRereadsCurationDraft(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	prefs := model.Preferences{Theme: "gratitude", Title: "The Gratitude Path"}

	journal := sampleJournal()
	journal.Cover.Title = "Fresh Draft Title"
	if _, err := store.WriteJSON(artifact.CategoryStructured,
		artifact.FileName(artifact.NameJournal, prefs.Title, prefs.Theme, ".json"), journal); err != nil {
		t.Fatal(err)
	}
	staleJournal := sampleJournal()
	staleJournal.Cover.Title = "Stale Final Title"
	if _, err := store.WriteJSON(artifact.CategoryStructured,
		artifact.FileName(artifact.NameFinalJournal, prefs.Title, prefs.Theme, ".json"), staleJournal); err != nil {
		t.Fatal(err)
	}

	magnet := &LeadMagnetDoc{
		Title:    "Fresh Teaser",
		Hook:     "Try the first three days free.",
		Sections: []LeadMagnetSection{{Heading: "Day one", Body: "Start small."}},
	}
	if _, err := store.WriteJSON(artifact.CategoryStructured,
		artifact.FileName(artifact.NameLeadMagnet, prefs.Title, prefs.Theme, ".json"), magnet); err != nil {
		t.Fatal(err)
	}
	staleMagnet := &LeadMagnetDoc{
		Title:    "Stale Teaser",
		Sections: []LeadMagnetSection{{Heading: "Old", Body: "Old body."}},
	}
	if _, err := store.WriteJSON(artifact.CategoryStructured,
		artifact.FileName(artifact.NameFinalLeadMagnet, prefs.Title, prefs.Theme, ".json"), staleMagnet); err != nil {
		t.Fatal(err)
	}

	// No model client configured, so editing passes each draft through.
	exec := &EditingExecutor{Deps{
		Parser: parser.New(nil, parser.WithRetries(2), parser.WithBackoff(time.Millisecond)),
		Config: config.PipelineConfig{JournalDays: 3},
	}}
	if _, err := exec.Run(context.Background(), prefs, store, func(int, string) {}); err != nil {
		t.Fatalf("editing run failed: %v", err)
	}

	var gotJournal JournalDoc
	if err := store.ReadJSON(artifact.CategoryStructured, artifact.NameFinalJournal, &gotJournal); err != nil {
		t.Fatalf("reading final journal: %v", err)
	}
	if gotJournal.Cover.Title != "Fresh Draft Title" {
		t.Errorf("final journal cover.title = %q, want the curation draft, not the stale final", gotJournal.Cover.Title)
	}

	var gotMagnet LeadMagnetDoc
	if err := store.ReadJSON(artifact.CategoryStructured, artifact.NameFinalLeadMagnet, &gotMagnet); err != nil {
		t.Fatalf("reading final lead magnet: %v", err)
	}
	if gotMagnet.Title != "Fresh Teaser" {
		t.Errorf("final lead magnet title = %q, want the curation draft, not the stale final", gotMagnet.Title)
	}
}

func TestEditingFailsWithoutDraft(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	prefs := model.Preferences{Theme: "gratitude", Title: "The Gratitude Path"}

	// Only a final from an earlier run, no curation draft.
	stale := sampleJournal()
	if _, err := store.WriteJSON(artifact.CategoryStructured,
		artifact.FileName(artifact.NameFinalJournal, prefs.Title, prefs.Theme, ".json"), stale); err != nil {
		t.Fatal(err)
	}

	exec := &EditingExecutor{Deps{
		Parser: parser.New(nil, parser.WithRetries(2), parser.WithBackoff(time.Millisecond)),
		Config: config.PipelineConfig{JournalDays: 3},
	}}
	if _, err := exec.Run(context.Background(), prefs, store, func(int, string) {}); err == nil {
		t.Fatal("expected an error when no curation draft exists")
	}
}
