package model

import "time"

// Preferences is the immutable input bag for a generation job.
type Preferences struct {
	Theme         string        `json:"theme"`
	Title         string        `json:"title,omitempty"`
	TitleStyle    string        `json:"titleStyle,omitempty"`
	AuthorStyle   string        `json:"authorStyle,omitempty"`
	ResearchDepth ResearchDepth `json:"researchDepth,omitempty"`
	Shape         Shape         `json:"shape,omitempty"`
	Action        Action        `json:"action,omitempty"`
	ProjectDir    string        `json:"projectDir,omitempty"`
}

// StepRecord tracks one pipeline stage inside a job. A record transitions
// pending → running → completed/failed exactly once; retries happen only
// inside the response parser, never at step level.
type StepRecord struct {
	StepID       StepID            `json:"stepId"`
	Status       StepStatus        `json:"status"`
	Progress     int               `json:"progress"`
	Result       map[string]string `json:"result,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	StartedAt    *time.Time        `json:"startedAt,omitempty"`
	EndedAt      *time.Time        `json:"endedAt,omitempty"`
}

// JobError records which step sank a failed job.
type JobError struct {
	StepID  StepID `json:"stepId"`
	Message string `json:"message"`
}

// Job represents one content-generation run. The steps list is fixed in size
// and order once execution begins; continuation actions create a new job with
// a smaller step list pointing at the same directory.
type Job struct {
	ID          string            `json:"id"`
	Owner       string            `json:"owner"`
	Preferences Preferences       `json:"preferences"`
	Status      JobStatus         `json:"status"`
	Steps       []*StepRecord     `json:"steps"`
	Directory   string            `json:"directory"`
	Result      map[string]string `json:"result,omitempty"`
	Error       *JobError         `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	EndedAt     *time.Time        `json:"endedAt,omitempty"`
}

// Step returns the record for the given step id, or nil.
func (j *Job) Step(id StepID) *StepRecord {
	for _, rec := range j.Steps {
		if rec.StepID == id {
			return rec
		}
	}
	return nil
}

// OverallProgress derives whole-job progress from per-step progress,
// weighting every step equally.
func (j *Job) OverallProgress() int {
	if len(j.Steps) == 0 {
		return 0
	}
	total := 0
	for _, rec := range j.Steps {
		total += rec.Progress
	}
	return total / len(j.Steps)
}
