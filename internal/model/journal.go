package model

// JournalGenerateRequest represents the request body for starting a journal
// generation job.
type JournalGenerateRequest struct {
	Theme         string        `json:"theme" validate:"required,min=2,max=120"`
	Title         string        `json:"title" validate:"omitempty,max=160"`
	TitleStyle    string        `json:"titleStyle" validate:"omitempty,max=80"`
	AuthorStyle   string        `json:"authorStyle" validate:"omitempty,max=80"`
	ResearchDepth ResearchDepth `json:"researchDepth" validate:"omitempty,oneof=light standard deep"`
	Shape         Shape         `json:"shape" validate:"omitempty,oneof=express standard comprehensive"`
	Action        Action        `json:"action" validate:"omitempty,oneof=new continue_research continue_content generate_media generate_pdf generate_epub_kdp"`
	ProjectDir    string        `json:"projectDir" validate:"omitempty,max=512"`
}

// JobCreateResponse represents the response when a job is accepted
type JobCreateResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	Directory string    `json:"directory"`
	Steps     []StepID  `json:"steps"`
}

// JobStatusResponse represents a job status snapshot
type JobStatusResponse struct {
	JobID     string            `json:"jobId"`
	Status    JobStatus         `json:"status"`
	Progress  int               `json:"progress"`
	Steps     []*StepRecord     `json:"steps"`
	Directory string            `json:"directory"`
	Result    map[string]string `json:"result,omitempty"`
	Error     *JobError         `json:"error,omitempty"`
	StartedAt *string           `json:"startedAt,omitempty"`
	EndedAt   *string           `json:"endedAt,omitempty"`
}

// JobCancelResponse represents the response to a cancellation request
type JobCancelResponse struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

// AnalyzeRequest represents the request body for analyzing an existing
// project directory.
type AnalyzeRequest struct {
	ProjectDir string `json:"projectDir" validate:"required,max=512"`
}
