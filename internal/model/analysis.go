package model

// Quality score aspects reported by the project analyzer
const (
	AspectResearchDepth    = "research_depth"
	AspectContentStructure = "content_structure"
	AspectVisualAssets     = "visual_assets"
	AspectRenderedDocument = "rendered_document"
	AspectOverall          = "overall"
)

// Recommendation priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Recommendation suggests a follow-up action for a project directory.
type Recommendation struct {
	Type          string   `json:"type"`
	Priority      string   `json:"priority"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	RequiredSteps []StepID `json:"requiredSteps"`
	ImpactScore   int      `json:"impactScore"`
}

// ProjectAnalysis is a read-only report derived from a project directory's
// artifacts. It is a pure function of on-disk state.
type ProjectAnalysis struct {
	StepCompletion    map[StepID]int   `json:"stepCompletion"`
	QualityScores     map[string]int   `json:"qualityScores"`
	MissingComponents []StepID         `json:"missingComponents"`
	Recommendations   []Recommendation `json:"recommendations"`
}
