// Package service owns the job registry and the orchestration entry points.
// The registry is an in-memory, best-effort map, deliberately not a durable
// queue. Jobs are launched one goroutine each and mutated only through the
// registry's narrow API.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/journalforge/api/internal/analyzer"
	"github.com/journalforge/api/internal/artifact"
	"github.com/journalforge/api/internal/config"
	"github.com/journalforge/api/internal/model"
	"github.com/journalforge/api/internal/steps"
	"github.com/journalforge/api/internal/worker"
)

var (
	// ErrJobNotFound is returned for unknown job ids.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidTransition is returned when an operation is not permitted
	// in the job's current state, e.g. cancelling a completed job.
	ErrInvalidTransition = errors.New("job state does not permit this operation")
)

// PlanSteps resolves the ordered step list for a shape or continuation
// action. Continuation actions run a subset against an existing directory.
func PlanSteps(shape model.Shape, action model.Action) []model.StepID {
	switch action {
	case model.ActionContinueResearch:
		return []model.StepID{model.StepResearch}
	case model.ActionContinueContent:
		return []model.StepID{model.StepDiscovery, model.StepCuration, model.StepEditing}
	case model.ActionGenerateMedia:
		return []model.StepID{model.StepMedia}
	case model.ActionGeneratePDF:
		return []model.StepID{model.StepPDFBuilding}
	case model.ActionGenerateEPUBKDP:
		return []model.StepID{model.StepEPUBBuilding}
	}

	switch shape {
	case model.ShapeExpress:
		return []model.StepID{model.StepDiscovery, model.StepCuration, model.StepPDFBuilding}
	case model.ShapeComprehensive:
		return []model.StepID{
			model.StepDiscovery, model.StepResearch, model.StepCuration,
			model.StepEditing, model.StepMedia, model.StepPDFBuilding, model.StepEPUBBuilding,
		}
	default: // standard
		return []model.StepID{
			model.StepDiscovery, model.StepResearch, model.StepCuration,
			model.StepEditing, model.StepPDFBuilding,
		}
	}
}

// JobService is the job registry plus the operations the handlers expose.
type JobService struct {
	mu         sync.RWMutex
	jobs       map[string]*model.Job
	cancelReqs map[string]bool

	pipeline *worker.Pipeline
	analyzer *analyzer.Analyzer
	cfg      config.PipelineConfig
	logger   *slog.Logger
}

// NewJobService wires the registry, pipeline and analyzer together.
func NewJobService(cfg config.PipelineConfig, executors map[model.StepID]steps.Executor, events worker.EventSink, an *analyzer.Analyzer, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &JobService{
		jobs:       make(map[string]*model.Job),
		cancelReqs: make(map[string]bool),
		analyzer:   an,
		cfg:        cfg,
		logger:     logger,
	}
	s.pipeline = worker.NewPipeline(executors, s, events, logger)
	return s
}

// Start validates the request, registers a new job and launches its
// pipeline goroutine.
func (s *JobService) Start(owner string, req *model.JournalGenerateRequest) (*model.JobCreateResponse, error) {
	action := req.Action
	if action == "" {
		action = model.ActionNew
	}
	shape := req.Shape
	if shape == "" {
		shape = model.ShapeStandard
	}

	prefs := model.Preferences{
		Theme:         req.Theme,
		Title:         req.Title,
		TitleStyle:    req.TitleStyle,
		AuthorStyle:   req.AuthorStyle,
		ResearchDepth: req.ResearchDepth,
		Shape:         shape,
		Action:        action,
		ProjectDir:    req.ProjectDir,
	}
	if shape == model.ShapeComprehensive {
		prefs.ResearchDepth = model.DepthDeep
	}

	var dir string
	if action.IsContinuation() {
		if req.ProjectDir == "" {
			return nil, fmt.Errorf("action %s requires projectDir", action)
		}
		if _, err := os.Stat(req.ProjectDir); err != nil {
			return nil, fmt.Errorf("project directory not usable: %w", err)
		}
		dir = req.ProjectDir
	} else {
		title := req.Title
		if title == "" {
			title = req.Theme
		}
		dir = artifact.Root(s.cfg.DataDir, title, time.Now())
	}
	prefs.ProjectDir = dir

	stepIDs := PlanSteps(shape, action)
	records := make([]*model.StepRecord, len(stepIDs))
	for i, id := range stepIDs {
		records[i] = &model.StepRecord{StepID: id, Status: model.StepStatusPending}
	}

	job := &model.Job{
		ID:          uuid.New().String(),
		Owner:       owner,
		Preferences: prefs,
		Status:      model.JobStatusPending,
		Steps:       records,
		Directory:   dir,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.logger.Info("job accepted", "job_id", job.ID, "owner", owner,
		"shape", shape, "action", action, "dir", dir)

	go s.pipeline.Run(worker.JobSpec{
		ID:          job.ID,
		Owner:       owner,
		Preferences: prefs,
		Directory:   dir,
		Steps:       stepIDs,
		Action:      action,
	})

	return &model.JobCreateResponse{
		JobID:     job.ID,
		Status:    model.JobStatusPending,
		Directory: dir,
		Steps:     stepIDs,
	}, nil
}

// GetStatus returns a snapshot of a job. Snapshots always reflect the last
// known good state; a failed job stays queryable indefinitely.
func (s *JobService) GetStatus(jobID string) (*model.JobStatusResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return snapshot(job), nil
}

// ListByOwner returns status snapshots for an owner's jobs, newest first.
func (s *JobService) ListByOwner(owner string) []*model.JobStatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*model.Job
	for _, job := range s.jobs {
		if job.Owner == owner {
			matched = append(matched, job)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	out := make([]*model.JobStatusResponse, len(matched))
	for i, job := range matched {
		out[i] = snapshot(job)
	}
	return out
}

// Cancel requests cooperative cancellation. The pipeline honours it at the
// next step boundary; an in-flight step always finishes.
func (s *JobService) Cancel(jobID string) (*model.JobCancelResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: job is %s", ErrInvalidTransition, job.Status)
	}

	s.cancelReqs[jobID] = true
	s.logger.Info("job cancellation requested", "job_id", jobID)

	return &model.JobCancelResponse{JobID: jobID, Status: job.Status}, nil
}

// AnalyzeProject inspects an existing project directory and reports
// completion, quality and recommendations. Read-only; safe to call while a
// job is writing to the same directory.
func (s *JobService) AnalyzeProject(dir string) (*model.ProjectAnalysis, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("project directory not usable: %w", err)
	}
	return s.analyzer.Analyze(dir), nil
}

// Registry implementation (worker.Registry)

// SetRunning transitions a pending job to running.
func (s *JobService) SetRunning(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status.IsTerminal() {
		return
	}
	job.Status = model.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
}

// UpdateStep applies fn to one step record under the registry lock. No-op
// once the job is terminal, so a stale worker can never resurrect state.
func (s *JobService) UpdateStep(jobID string, stepID model.StepID, fn func(*model.StepRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status.IsTerminal() {
		return
	}
	if rec := job.Step(stepID); rec != nil {
		fn(rec)
	}
}

// SetTerminal moves a job into its final state exactly once.
func (s *JobService) SetTerminal(jobID string, status model.JobStatus, result map[string]string, jobErr *model.JobError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status.IsTerminal() {
		return
	}
	job.Status = status
	job.Result = result
	job.Error = jobErr
	now := time.Now()
	job.EndedAt = &now
	delete(s.cancelReqs, jobID)
}

// CancelRequested reports whether cancellation was requested for a job.
func (s *JobService) CancelRequested(jobID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelReqs[jobID]
}

// snapshot deep-copies the mutable pieces of a job into a response. Callers
// must hold at least a read lock.
func snapshot(job *model.Job) *model.JobStatusResponse {
	stepCopies := make([]*model.StepRecord, len(job.Steps))
	for i, rec := range job.Steps {
		c := *rec
		stepCopies[i] = &c
	}
	resp := &model.JobStatusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		Progress:  job.OverallProgress(),
		Steps:     stepCopies,
		Directory: job.Directory,
		Result:    job.Result,
		Error:     job.Error,
	}
	if job.StartedAt != nil {
		t := job.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &t
	}
	if job.EndedAt != nil {
		t := job.EndedAt.Format(time.RFC3339)
		resp.EndedAt = &t
	}
	return resp
}
