// Package artifact implements the on-disk layout for a generation project.
//
// Every job owns one directory with a fixed set of category subdirectories.
// Files are located by substring match on their names ("contains
// research_data"), not exact equality: filenames embed the journal title and
// theme, which later steps may not have verbatim. Continuation and analysis
// both depend on this convention, so it must stay stable.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Category subdirectories under a project root
const (
	CategoryStructured  = "structured-output"
	CategoryDocuments   = "document-output"
	CategoryMedia       = "media-output"
	CategoryTranscripts = "model-transcripts"
)

var categories = []string{CategoryStructured, CategoryDocuments, CategoryMedia, CategoryTranscripts}

// Logical artifact names. Steps write files whose names contain one of these;
// downstream steps and the analyzer look them up the same way.
const (
	NameConcept           = "concept"
	NameResearchData      = "research_data"
	NameJournal           = "journal"
	NameLeadMagnet        = "lead_magnet"
	NameImageRequirements = "image_requirements"
	NameFinalJournal      = "final_journal"
	NameFinalLeadMagnet   = "final_lead_magnet"
)

// Slug lowercases s and collapses anything that is not a letter or digit
// into single hyphens, for use in directory and file names.
func Slug(s string) string {
	var b strings.Builder
	prevHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevHyphen = false
		} else if !prevHyphen {
			b.WriteByte('-')
			prevHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Root builds the deterministic project directory name for a new job.
func Root(baseDir, title string, ts time.Time) string {
	slug := Slug(title)
	if slug == "" {
		slug = "journal"
	}
	return filepath.Join(baseDir, fmt.Sprintf("%s-%s", slug, ts.Format("20060102-150405")))
}

// Store reads and writes artifacts under one project root. Writes are
// append-only from the pipeline's perspective: a step overwrites its own
// named artifacts and never deletes siblings, which keeps continuation after
// partial failure safe.
type Store struct {
	root string
}

// NewStore opens a project root, creating the category layout if needed.
func NewStore(root string) (*Store, error) {
	for _, cat := range categories {
		if err := os.MkdirAll(filepath.Join(root, cat), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", cat, err)
		}
	}
	return &Store{root: root}, nil
}

// Open returns a read-only view of an existing project root without
// touching the filesystem. Used by the analyzer.
func Open(root string) *Store {
	return &Store{root: root}
}

// Root returns the project root path.
func (s *Store) Root() string { return s.root }

// Dir returns the absolute path of a category subdirectory.
func (s *Store) Dir(category string) string {
	return filepath.Join(s.root, category)
}

// List returns the file names inside a category, sorted. A missing
// category directory yields an empty list, never an error.
func (s *Store) List(category string) []string {
	entries, err := os.ReadDir(s.Dir(category))
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// FindByPrefix returns the path of the first file in category whose name
// contains name as a substring. The sorted order makes the result
// deterministic when several files match.
func (s *Store) FindByPrefix(category, name string) (string, bool) {
	for _, f := range s.List(category) {
		if strings.Contains(f, name) {
			return filepath.Join(s.Dir(category), f), true
		}
	}
	return "", false
}

// FindDraft returns the path of the first file in category whose name
// contains name but is not a final_ version. Editing uses it so the curation
// draft wins even when a previous run left final_journal alongside journal.
func (s *Store) FindDraft(category, name string) (string, bool) {
	for _, f := range s.List(category) {
		if strings.Contains(f, "final_") || !strings.Contains(f, name) {
			continue
		}
		return filepath.Join(s.Dir(category), f), true
	}
	return "", false
}

// WriteJSON marshals v into category/filename and returns the written path.
func (s *Store) WriteJSON(category, filename string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", filename, err)
	}
	return s.WriteFile(category, filename, data)
}

// WriteFile writes raw bytes into category/filename and returns the path.
func (s *Store) WriteFile(category, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir(category), 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir(category), filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return path, nil
}

// ReadJSON locates a file by substring match and unmarshals it into v.
func (s *Store) ReadJSON(category, name string, v any) error {
	path, ok := s.FindByPrefix(category, name)
	if !ok {
		return fmt.Errorf("artifact %q not found in %s", name, category)
	}
	return s.readJSONFile(path, v)
}

// ReadJSONDraft is ReadJSON restricted to non-final files, see FindDraft.
func (s *Store) ReadJSONDraft(category, name string, v any) error {
	path, ok := s.FindDraft(category, name)
	if !ok {
		return fmt.Errorf("draft artifact %q not found in %s", name, category)
	}
	return s.readJSONFile(path, v)
}

func (s *Store) readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// FileName builds the conventional artifact file name: the logical name
// followed by slugs of title and theme.
func FileName(logical, title, theme, ext string) string {
	parts := []string{logical}
	if t := Slug(title); t != "" {
		parts = append(parts, t)
	}
	if t := Slug(theme); t != "" {
		parts = append(parts, t)
	}
	return strings.Join(parts, "_") + ext
}
