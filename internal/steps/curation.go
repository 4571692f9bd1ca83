package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/journalforge/api/internal/artifact"
	"github.com/journalforge/api/internal/model"
	"github.com/journalforge/api/internal/parser"
)

// CurationExecutor assembles the journal itself plus the companion lead
// magnet. Each logical section is its own parser call with its own expected
// keys: cover page, intro spread, commitment page, one batched call for all
// daily entries, certificate page, and the lead magnet.
type CurationExecutor struct {
	deps Deps
}

func (e *CurationExecutor) ID() model.StepID { return model.StepCuration }

func (e *CurationExecutor) Run(ctx context.Context, prefs model.Preferences, store *artifact.Store, report ProgressFunc) (Result, error) {
	title := journalTitle(prefs, store)
	days := e.deps.Config.JournalDays
	research := e.loadResearch(store)

	doc := JournalDoc{
		Title: title,
		Theme: prefs.Theme,
	}

	report(5, "Writing cover page")
	cover, err := e.section(ctx, prefs, store, "cover",
		fmt.Sprintf(`Write the cover page for a %d-day guided journal titled "%s" on the theme "%s".
Output as JSON: {"title": "...", "tagline": "..."}`, days, title, prefs.Theme),
		[]string{"title", "tagline"},
		fmt.Sprintf(`{"title": "%s", "tagline": "%d days of %s"}`, title, days, prefs.Theme))
	if err != nil {
		return nil, err
	}
	doc.Cover = CoverPage{Title: cover.Get("title").Str(), Tagline: cover.Get("tagline").Str()}

	report(20, "Writing introduction spread")
	intro, err := e.section(ctx, prefs, store, "intro",
		fmt.Sprintf(`Write the introduction spread for "%s" (theme: %s).%s
Explain how to use the journal and what the reader will gain.
Output as JSON: {"heading": "...", "body": "..."}`, title, prefs.Theme, research),
		[]string{"heading", "body"},
		`{"heading": "Welcome", "body": "This journal guides you one small step at a time."}`)
	if err != nil {
		return nil, err
	}
	doc.Intro = Spread{Heading: intro.Get("heading").Str(), Body: intro.Get("body").Str()}

	report(35, "Writing commitment page")
	commitment, err := e.section(ctx, prefs, store, "commitment",
		fmt.Sprintf(`Write the commitment page for "%s": a short pledge the reader signs before day one.
Output as JSON: {"heading": "...", "pledge": "..."}`, title),
		[]string{"heading", "pledge"},
		`{"heading": "My Commitment", "pledge": "I commit to showing up for myself each day."}`)
	if err != nil {
		return nil, err
	}
	doc.Commitment = Commitment{Heading: commitment.Get("heading").Str(), Pledge: commitment.Get("pledge").Str()}

	report(50, fmt.Sprintf("Writing %d daily entries", days))
	daily, err := e.section(ctx, prefs, store, "daily_entries",
		fmt.Sprintf(`Write all %d daily entries for "%s" (theme: %s).%s
Each entry needs a day number, a short title, a reflective writing prompt,
and an affirmation. Vary the prompts; build gradually across the days.
Output as JSON: {"days": [{"day": 1, "title": "...", "prompt": "...", "affirmation": "..."}]}`,
			days, title, prefs.Theme, research),
		[]string{"days.0.title", "days.0.prompt", "days.0.affirmation"},
		e.mockDays(prefs, days))
	if err != nil {
		return nil, err
	}
	doc.Days = decodeDays(daily.Get("days"))

	report(75, "Writing completion certificate")
	cert, err := e.section(ctx, prefs, store, "certificate",
		fmt.Sprintf(`Write the completion certificate page closing out "%s" after %d days.
Output as JSON: {"heading": "...", "body": "..."}`, title, days),
		[]string{"heading", "body"},
		`{"heading": "Certificate of Completion", "body": "You showed up, day after day."}`)
	if err != nil {
		return nil, err
	}
	doc.Certificate = Spread{Heading: cert.Get("heading").Str(), Body: cert.Get("body").Str()}

	report(85, "Writing lead magnet teaser")
	magnet, err := e.section(ctx, prefs, store, "lead_magnet",
		fmt.Sprintf(`Write a short free teaser (lead magnet) promoting "%s" (theme: %s).
Two or three compact sections plus a call to action pointing at the full journal.
Output as JSON: {"title": "...", "hook": "...", "sections": [{"heading": "...", "body": "..."}], "call_to_action": "..."}`,
			title, prefs.Theme),
		[]string{"title", "hook", "sections.0.heading", "sections.0.body", "call_to_action"},
		fmt.Sprintf(`{"title": "3 Days of %s", "hook": "Try the first three days free.", "sections": [{"heading": "Day one", "body": "Start small."}], "call_to_action": "Get the full %s."}`,
			prefs.Theme, title))
	if err != nil {
		return nil, err
	}

	report(92, "Saving journal structure")

	journalPath, err := store.WriteJSON(artifact.CategoryStructured,
		artifact.FileName(artifact.NameJournal, title, prefs.Theme, ".json"), doc)
	if err != nil {
		return nil, err
	}
	magnetPath, err := store.WriteJSON(artifact.CategoryStructured,
		artifact.FileName(artifact.NameLeadMagnet, title, prefs.Theme, ".json"), magnet.Interface())
	if err != nil {
		return nil, err
	}

	return Result{
		artifact.NameJournal:    journalPath,
		artifact.NameLeadMagnet: magnetPath,
	}, nil
}

// section runs one parser call site and returns the accepted value.
func (e *CurationExecutor) section(ctx context.Context, prefs model.Preferences, store *artifact.Store, site, prompt string, expected []string, mock string) (*parser.Value, error) {
	res, err := e.deps.Parser.Parse(ctx, e.deps.caller(mock), parser.Request{
		SystemPrompt: systemPrompt(prefs),
		Prompt:       prompt,
		Dir:          store.Dir(artifact.CategoryTranscripts),
		Filename:     transcript(model.StepCuration, site),
		ExpectedKeys: expected,
		Flatten:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("curation %s call failed: %w", site, err)
	}
	return res.Value, nil
}

// loadResearch renders prior research findings into a prompt fragment, or
// "" when the shape skipped the research step.
func (e *CurationExecutor) loadResearch(store *artifact.Store) string {
	var data struct {
		ThemeOverview string `json:"theme_overview"`
		Findings      []struct {
			Title   string `json:"title"`
			Insight string `json:"insight"`
		} `json:"findings"`
	}
	if err := store.ReadJSON(artifact.CategoryStructured, artifact.NameResearchData, &data); err != nil {
		return ""
	}
	out := "\nGround the content in this research:\n"
	for _, f := range data.Findings {
		out += fmt.Sprintf("- %s: %s\n", f.Title, f.Insight)
	}
	return out
}

func (e *CurationExecutor) mockDays(prefs model.Preferences, days int) string {
	type day struct {
		Day         int    `json:"day"`
		Title       string `json:"title"`
		Prompt      string `json:"prompt"`
		Affirmation string `json:"affirmation"`
	}
	out := struct {
		Days []day `json:"days"`
	}{}
	for i := 1; i <= days; i++ {
		out.Days = append(out.Days, day{
			Day:         i,
			Title:       fmt.Sprintf("Day %d", i),
			Prompt:      fmt.Sprintf("Where did %s show up for you today?", prefs.Theme),
			Affirmation: "I am building this practice one day at a time.",
		})
	}
	data, _ := json.Marshal(out)
	return string(data)
}

func decodeDays(v *parser.Value) []DailyEntry {
	entries := make([]DailyEntry, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		el := v.Index(i)
		day := el.Get("day").Int()
		if day == 0 {
			day = i + 1
		}
		entries = append(entries, DailyEntry{
			Day:         day,
			Title:       el.Get("title").Str(),
			Prompt:      el.Get("prompt").Str(),
			Affirmation: el.Get("affirmation").Str(),
		})
	}
	return entries
}
