package artifact

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Morning Gratitude", "morning-gratitude"},
		{"  Stress & Sleep!  ", "stress-sleep"},
		{"Déjà Vu", "déjà-vu"},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Errorf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRootEmbedsSlugAndTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	got := Root("/data", "Morning Gratitude", ts)
	want := filepath.Join("/data", "morning-gratitude-20260314-092653")
	if got != want {
		t.Errorf("Root = %q, want %q", got, want)
	}

	// Untitled projects still get a valid directory.
	got = Root("/data", "!!!", ts)
	if !strings.Contains(got, "journal-20260314") {
		t.Errorf("Root with empty slug = %q, want journal fallback", got)
	}
}

func TestFileName(t *testing.T) {
	got := FileName(NameResearchData, "The Gratitude Path", "gratitude", ".json")
	if got != "research_data_the-gratitude-path_gratitude.json" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileName(NameConcept, "", "", ".json"); got != "concept.json" {
		t.Errorf("FileName without title/theme = %q, want concept.json", got)
	}
}

func TestFindByPrefixMatchesSubstring(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.WriteJSON(CategoryStructured, "research_data_my-title_sleep.json", map[string]string{"k": "v"}); err != nil {
		t.Fatal(err)
	}

	path, ok := store.FindByPrefix(CategoryStructured, NameResearchData)
	if !ok {
		t.Fatal("expected research_data artifact to be found")
	}
	if !strings.HasSuffix(path, "research_data_my-title_sleep.json") {
		t.Errorf("found %q", path)
	}

	if _, ok := store.FindByPrefix(CategoryStructured, "image_requirements"); ok {
		t.Error("lookup of absent artifact should fail")
	}
}

// The journal lookup deliberately matches by substring, so "journal" also
// matches "final_journal". Sorted order makes the collision deterministic:
// final_journal sorts first. Readers that need a specific version must not
// use the plain lookup: the document builders check the final name first,
// and editing reads its input through FindDraft.
func TestFindByPrefixSubstringCollision(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.WriteJSON(CategoryStructured, "journal_t.json", map[string]string{"v": "draft"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.WriteJSON(CategoryStructured, "final_journal_t.json", map[string]string{"v": "final"}); err != nil {
		t.Fatal(err)
	}

	path, ok := store.FindByPrefix(CategoryStructured, NameJournal)
	if !ok {
		t.Fatal("expected a match")
	}
	if !strings.HasSuffix(path, "final_journal_t.json") {
		t.Errorf("substring match resolved to %q, want final_journal_t.json (sorted first)", path)
	}
}

func TestFindDraftSkipsFinalVersions(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.WriteJSON(CategoryStructured, "final_journal_t.json", map[string]string{"v": "final"}); err != nil {
		t.Fatal(err)
	}

	// Only the final exists: there is no draft to find.
	if _, ok := store.FindDraft(CategoryStructured, NameJournal); ok {
		t.Error("FindDraft must not resolve to a final_ artifact")
	}
	var out map[string]string
	if err := store.ReadJSONDraft(CategoryStructured, NameJournal, &out); err == nil {
		t.Error("ReadJSONDraft must fail when only the final version exists")
	}

	if _, err := store.WriteJSON(CategoryStructured, "journal_t.json", map[string]string{"v": "draft"}); err != nil {
		t.Fatal(err)
	}

	path, ok := store.FindDraft(CategoryStructured, NameJournal)
	if !ok {
		t.Fatal("expected the draft to be found")
	}
	if !strings.HasSuffix(path, "journal_t.json") || strings.Contains(filepath.Base(path), "final_") {
		t.Errorf("FindDraft resolved to %q, want the non-final journal_t.json", path)
	}
	if err := store.ReadJSONDraft(CategoryStructured, NameJournal, &out); err != nil {
		t.Fatalf("ReadJSONDraft failed: %v", err)
	}
	if out["v"] != "draft" {
		t.Errorf("ReadJSONDraft picked %q, want the draft content", out["v"])
	}
}

func TestReadJSONRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	in := map[string]any{"theme": "sleep", "days": float64(30)}
	if _, err := store.WriteJSON(CategoryStructured, FileName(NameConcept, "T", "sleep", ".json"), in); err != nil {
		t.Fatal(err)
	}

	var out map[string]any
	if err := store.ReadJSON(CategoryStructured, NameConcept, &out); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if out["theme"] != "sleep" || out["days"] != float64(30) {
		t.Errorf("round trip = %v", out)
	}
}

func TestListMissingCategoryIsEmpty(t *testing.T) {
	store := Open(filepath.Join(t.TempDir(), "nope"))
	if got := store.List(CategoryMedia); len(got) != 0 {
		t.Errorf("List on missing dir = %v, want empty", got)
	}
}

func TestNewStoreCreatesLayout(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, cat := range []string{CategoryStructured, CategoryDocuments, CategoryMedia, CategoryTranscripts} {
		if store.Dir(cat) != filepath.Join(root, cat) {
			t.Errorf("Dir(%s) = %q", cat, store.Dir(cat))
		}
		if _, err := store.WriteFile(cat, "probe.txt", []byte("x")); err != nil {
			t.Errorf("category %s not writable: %v", cat, err)
		}
	}
}
