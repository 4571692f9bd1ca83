package model

// Job status
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"

	// Action-scoped terminal statuses, set when the job ran a single
	// continuation action rather than a full pipeline shape.
	JobStatusResearchCompleted JobStatus = "research_completed"
	JobStatusContentCompleted  JobStatus = "content_completed"
	JobStatusMediaCompleted    JobStatus = "media_completed"
	JobStatusPDFCompleted      JobStatus = "pdf_completed"
)

// IsTerminal reports whether a job in this status accepts no further transitions.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled,
		JobStatusResearchCompleted, JobStatusContentCompleted,
		JobStatusMediaCompleted, JobStatusPDFCompleted:
		return true
	}
	return false
}

// Step status
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// Pipeline step identifiers. These are stable keys; artifact discovery and
// continuation logic depend on them, so they must not change.
type StepID string

const (
	StepDiscovery    StepID = "discovery"
	StepResearch     StepID = "research"
	StepCuration     StepID = "curation"
	StepEditing      StepID = "editing"
	StepMedia        StepID = "media"
	StepPDFBuilding  StepID = "pdf_building"
	StepEPUBBuilding StepID = "epub_building"
)

// Shape selects which steps a full generation run includes
type Shape string

const (
	ShapeExpress       Shape = "express"
	ShapeStandard      Shape = "standard"
	ShapeComprehensive Shape = "comprehensive"
)

var ValidShapes = []Shape{ShapeExpress, ShapeStandard, ShapeComprehensive}

// Action is either a fresh full run or a single-step continuation against
// an existing project directory.
type Action string

const (
	ActionNew              Action = "new"
	ActionContinueResearch Action = "continue_research"
	ActionContinueContent  Action = "continue_content"
	ActionGenerateMedia    Action = "generate_media"
	ActionGeneratePDF      Action = "generate_pdf"
	ActionGenerateEPUBKDP  Action = "generate_epub_kdp"
)

// IsContinuation reports whether the action runs against a previously
// created project directory instead of a fresh one.
func (a Action) IsContinuation() bool {
	return a != "" && a != ActionNew
}

// Research depth
type ResearchDepth string

const (
	DepthLight    ResearchDepth = "light"
	DepthStandard ResearchDepth = "standard"
	DepthDeep     ResearchDepth = "deep"
)

// Progress event kinds
type EventKind string

const (
	EventStepStarted   EventKind = "step_started"
	EventStepProgress  EventKind = "step_progress"
	EventStepCompleted EventKind = "step_completed"
	EventStepFailed    EventKind = "step_failed"
	EventJobCompleted  EventKind = "job_completed"
	EventJobFailed     EventKind = "job_failed"
	EventJobCancelled  EventKind = "job_cancelled"
	EventNotice        EventKind = "notice"
)
