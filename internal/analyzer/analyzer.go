// Package analyzer derives what a project directory already contains and
// what to do next, purely from on-disk artifacts. It never writes, so it is
// safe to run concurrently with a job working in the same directory, and it
// treats missing or partially-written files as "not yet produced".
package analyzer

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/journalforge/api/internal/artifact"
	"github.com/journalforge/api/internal/config"
	"github.com/journalforge/api/internal/model"
)

// Analyzer scores a project directory. The completion thresholds and quality
// weights are heuristic constants carried in config; they must stay stable
// within one deployment.
type Analyzer struct {
	pipeline config.PipelineConfig
	weights  config.AnalyzerConfig
	logger   *slog.Logger
}

// New creates an Analyzer.
func New(pipeline config.PipelineConfig, weights config.AnalyzerConfig, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{pipeline: pipeline, weights: weights, logger: logger}
}

// Analyze classifies the directory's files by name substring into logical
// categories and reports per-step completion, quality scores, missing
// components and capped recommendations.
func (a *Analyzer) Analyze(dir string) *model.ProjectAnalysis {
	store := artifact.Open(dir)

	research := a.researchCompletion(store)
	journal := a.journalCompletion(store)
	editing := boolCompletion(hasFile(store, artifact.CategoryStructured, artifact.NameFinalJournal))
	media := boolCompletion(len(store.List(artifact.CategoryMedia)) > 0)
	pdf := boolCompletion(hasSuffix(store, artifact.CategoryDocuments, ".pdf"))
	epub := boolCompletion(hasSuffix(store, artifact.CategoryDocuments, ".epub"))

	discovery := journal
	if hasFile(store, artifact.CategoryStructured, artifact.NameConcept) {
		discovery = 100
	}

	completion := map[model.StepID]int{
		model.StepDiscovery:    discovery,
		model.StepResearch:     research,
		model.StepCuration:     journal,
		model.StepEditing:      editing,
		model.StepMedia:        media,
		model.StepPDFBuilding:  pdf,
		model.StepEPUBBuilding: epub,
	}

	visualCount := len(store.List(artifact.CategoryMedia))
	quality := map[string]int{
		model.AspectResearchDepth:    research,
		model.AspectContentStructure: journal,
		model.AspectVisualAssets:     clamp(visualCount * 20),
		model.AspectRenderedDocument: pdf,
	}
	quality[model.AspectOverall] = (quality[model.AspectResearchDepth]*a.weights.WeightResearch +
		quality[model.AspectContentStructure]*a.weights.WeightContent +
		quality[model.AspectVisualAssets]*a.weights.WeightVisual +
		quality[model.AspectRenderedDocument]*a.weights.WeightDocument) /
		max(a.weights.WeightResearch+a.weights.WeightContent+a.weights.WeightVisual+a.weights.WeightDocument, 1)

	// The four major component categories: research, journal content,
	// visual assets, rendered document.
	var missing []model.StepID
	for _, step := range []model.StepID{model.StepResearch, model.StepCuration, model.StepMedia, model.StepPDFBuilding} {
		if completion[step] == 0 {
			missing = append(missing, step)
		}
	}

	return &model.ProjectAnalysis{
		StepCompletion:    completion,
		QualityScores:     quality,
		MissingComponents: missing,
		Recommendations:   a.recommend(missing, quality),
	}
}

// researchCompletion counts findings against the depth-dependent target.
func (a *Analyzer) researchCompletion(store *artifact.Store) int {
	var data struct {
		Depth    string           `json:"depth"`
		Findings []map[string]any `json:"findings"`
	}
	if err := store.ReadJSON(artifact.CategoryStructured, artifact.NameResearchData, &data); err != nil {
		return 0
	}
	target := a.pipeline.FindingsTarget(data.Depth)
	if target <= 0 {
		target = 1
	}
	return clamp(len(data.Findings) * 100 / target)
}

// journalCompletion scores structural completeness of the curated journal:
// each core section contributes, the daily entries against the configured
// day count.
func (a *Analyzer) journalCompletion(store *artifact.Store) int {
	var doc struct {
		Cover       struct{ Title string }   `json:"cover"`
		Intro       struct{ Body string }    `json:"intro"`
		Commitment  struct{ Pledge string }  `json:"commitment"`
		Days        []map[string]any         `json:"days"`
		Certificate struct{ Heading string } `json:"certificate"`
	}
	if err := store.ReadJSON(artifact.CategoryStructured, artifact.NameJournal, &doc); err != nil {
		return 0
	}

	score := 0
	if doc.Cover.Title != "" {
		score += 15
	}
	if doc.Intro.Body != "" {
		score += 15
	}
	if doc.Commitment.Pledge != "" {
		score += 10
	}
	if doc.Certificate.Heading != "" {
		score += 10
	}
	days := a.pipeline.JournalDays
	if days <= 0 {
		days = 1
	}
	score += min(len(doc.Days)*50/days, 50)
	return clamp(score)
}

// recommend builds follow-up suggestions from missing steps plus quality
// thresholds, sorted by impact and capped at ten.
func (a *Analyzer) recommend(missing []model.StepID, quality map[string]int) []model.Recommendation {
	lookup := map[model.StepID]model.Recommendation{
		model.StepResearch: {
			Type:          "missing_research",
			Priority:      model.PriorityHigh,
			Title:         "Run theme research",
			Description:   "No research data was found; content quality improves markedly with grounded findings.",
			RequiredSteps: []model.StepID{model.StepResearch},
			ImpactScore:   85,
		},
		model.StepCuration: {
			Type:          "missing_content",
			Priority:      model.PriorityHigh,
			Title:         "Generate journal content",
			Description:   "The journal structure has not been created yet.",
			RequiredSteps: []model.StepID{model.StepDiscovery, model.StepCuration, model.StepEditing},
			ImpactScore:   95,
		},
		model.StepMedia: {
			Type:          "missing_media",
			Priority:      model.PriorityMedium,
			Title:         "Generate visual assets",
			Description:   "No images were found; covers and dividers lift perceived quality.",
			RequiredSteps: []model.StepID{model.StepMedia},
			ImpactScore:   55,
		},
		model.StepPDFBuilding: {
			Type:          "missing_document",
			Priority:      model.PriorityHigh,
			Title:         "Build the PDF",
			Description:   "No rendered document exists yet; the project cannot ship without one.",
			RequiredSteps: []model.StepID{model.StepPDFBuilding},
			ImpactScore:   90,
		},
	}

	var recs []model.Recommendation
	for _, step := range missing {
		if rec, ok := lookup[step]; ok {
			recs = append(recs, rec)
		}
	}

	if score := quality[model.AspectResearchDepth]; score > 0 && score < 50 {
		recs = append(recs, model.Recommendation{
			Type:          "shallow_research",
			Priority:      model.PriorityMedium,
			Title:         "Deepen the research",
			Description:   "Research exists but falls short of the depth target; re-run with deeper settings.",
			RequiredSteps: []model.StepID{model.StepResearch},
			ImpactScore:   60,
		})
	}
	if score := quality[model.AspectContentStructure]; score > 0 && score < 70 {
		recs = append(recs, model.Recommendation{
			Type:          "incomplete_content",
			Priority:      model.PriorityMedium,
			Title:         "Complete the journal structure",
			Description:   "The journal is missing sections or daily entries; re-run content generation.",
			RequiredSteps: []model.StepID{model.StepCuration, model.StepEditing},
			ImpactScore:   70,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ImpactScore > recs[j].ImpactScore
	})
	if len(recs) > 10 {
		recs = recs[:10]
	}
	return recs
}

func hasFile(store *artifact.Store, category, name string) bool {
	_, ok := store.FindByPrefix(category, name)
	return ok
}

func hasSuffix(store *artifact.Store, category, suffix string) bool {
	for _, f := range store.List(category) {
		if strings.HasSuffix(f, suffix) {
			return true
		}
	}
	return false
}

func boolCompletion(present bool) int {
	if present {
		return 100
	}
	return 0
}

func clamp(v int) int {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
