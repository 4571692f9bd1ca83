// Package worker runs one generation job's pipeline from start to terminal
// state. Execution inside a job is strictly sequential: steps have data
// dependencies (curation reads research output, the document builders read
// editing output), so no concurrency is attempted within one job. Different
// jobs run concurrently with respect to each other.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/journalforge/api/internal/artifact"
	"github.com/journalforge/api/internal/model"
	"github.com/journalforge/api/internal/steps"
)

// JobSpec is the immutable slice of a job the pipeline needs. The live job
// record stays inside the registry and is only touched through it.
type JobSpec struct {
	ID          string
	Owner       string
	Preferences model.Preferences
	Directory   string
	Steps       []model.StepID
	Action      model.Action
}

// Registry is the narrow mutation surface the pipeline gets over job state.
type Registry interface {
	SetRunning(jobID string)
	UpdateStep(jobID string, stepID model.StepID, fn func(*model.StepRecord))
	SetTerminal(jobID string, status model.JobStatus, result map[string]string, jobErr *model.JobError)
	// CancelRequested is checked between steps, never mid-step.
	CancelRequested(jobID string) bool
}

// EventSink receives progress events for fan-out to subscribers.
type EventSink interface {
	Publish(event model.ProgressEvent)
}

// Pipeline walks a job's step list in order, applying the per-step failure
// policy: media failure downgrades to a notice with placeholder assets,
// every other failure is fatal to the job.
type Pipeline struct {
	executors map[model.StepID]steps.Executor
	registry  Registry
	events    EventSink
	logger    *slog.Logger
}

// NewPipeline creates a pipeline runner.
func NewPipeline(executors map[model.StepID]steps.Executor, registry Registry, events EventSink, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		executors: executors,
		registry:  registry,
		events:    events,
		logger:    logger,
	}
}

// Run executes the job to a terminal state. Intended to be launched on its
// own goroutine, one per job.
func (p *Pipeline) Run(spec JobSpec) {
	ctx := context.Background()
	logger := p.logger.With("job_id", spec.ID)

	store, err := artifact.NewStore(spec.Directory)
	if err != nil {
		logger.Error("failed to open project directory", "dir", spec.Directory, "error", err)
		p.fail(spec, "", err.Error())
		return
	}

	p.registry.SetRunning(spec.ID)
	logger.Info("job started", "steps", len(spec.Steps), "action", spec.Action)

	result := map[string]string{}

	for _, stepID := range spec.Steps {
		if p.registry.CancelRequested(spec.ID) {
			logger.Info("job cancelled", "before_step", stepID)
			p.registry.SetTerminal(spec.ID, model.JobStatusCancelled, result, nil)
			p.publish(spec.ID, model.EventJobCancelled, "", 0, "Job cancelled")
			return
		}

		exec, ok := p.executors[stepID]
		if !ok {
			p.fail(spec, stepID, "no executor registered for step")
			return
		}

		p.startStep(spec.ID, stepID)
		stepResult, err := exec.Run(ctx, spec.Preferences, store, p.reporter(spec.ID, stepID))
		if err != nil {
			if stepID == model.StepMedia {
				// Media is non-essential: log, fall back to placeholder
				// assets, and keep the job moving.
				logger.Warn("media step failed, continuing with placeholders", "error", err)
				p.failStep(spec.ID, stepID, err.Error())
				p.publish(spec.ID, model.EventNotice, stepID, 0,
					"Media generation failed; placeholder assets were used")
				if placeholders, perr := steps.WritePlaceholderMedia(store); perr == nil {
					mergeResult(result, placeholders)
				} else {
					logger.Error("placeholder media write failed", "error", perr)
				}
				continue
			}

			logger.Error("step failed", "step", stepID, "error", err)
			p.failStep(spec.ID, stepID, err.Error())
			p.publish(spec.ID, model.EventStepFailed, stepID, 0, err.Error())
			p.registry.SetTerminal(spec.ID, model.JobStatusFailed, result,
				&model.JobError{StepID: stepID, Message: err.Error()})
			p.publish(spec.ID, model.EventJobFailed, stepID, 0, err.Error())
			return
		}

		mergeResult(result, stepResult)
		p.completeStep(spec.ID, stepID, stepResult)
		logger.Info("step completed", "step", stepID)
	}

	status := terminalStatus(spec.Action)
	p.registry.SetTerminal(spec.ID, status, result, nil)
	p.publish(spec.ID, model.EventJobCompleted, "", 100, "Job completed")
	logger.Info("job completed", "status", status)
}

// terminalStatus distinguishes "the whole pipeline finished" from "one
// requested continuation step finished".
func terminalStatus(action model.Action) model.JobStatus {
	switch action {
	case model.ActionContinueResearch:
		return model.JobStatusResearchCompleted
	case model.ActionContinueContent:
		return model.JobStatusContentCompleted
	case model.ActionGenerateMedia:
		return model.JobStatusMediaCompleted
	case model.ActionGeneratePDF:
		return model.JobStatusPDFCompleted
	}
	return model.JobStatusCompleted
}

func (p *Pipeline) startStep(jobID string, stepID model.StepID) {
	now := time.Now()
	p.registry.UpdateStep(jobID, stepID, func(rec *model.StepRecord) {
		rec.Status = model.StepStatusRunning
		rec.StartedAt = &now
	})
	p.publish(jobID, model.EventStepStarted, stepID, 0, string(stepID)+" started")
}

func (p *Pipeline) completeStep(jobID string, stepID model.StepID, result steps.Result) {
	now := time.Now()
	p.registry.UpdateStep(jobID, stepID, func(rec *model.StepRecord) {
		rec.Status = model.StepStatusCompleted
		rec.Progress = 100
		rec.Result = result
		rec.EndedAt = &now
	})
	p.publish(jobID, model.EventStepCompleted, stepID, 100, string(stepID)+" completed")
}

func (p *Pipeline) failStep(jobID string, stepID model.StepID, msg string) {
	now := time.Now()
	p.registry.UpdateStep(jobID, stepID, func(rec *model.StepRecord) {
		rec.Status = model.StepStatusFailed
		rec.ErrorMessage = msg
		rec.EndedAt = &now
	})
}

// reporter builds the intra-step progress callback. Progress is clamped to
// 0-99 and kept monotonic while the step runs; 100 is reserved for
// completion.
func (p *Pipeline) reporter(jobID string, stepID model.StepID) steps.ProgressFunc {
	return func(progress int, message string) {
		if progress < 0 {
			progress = 0
		}
		if progress > 99 {
			progress = 99
		}
		p.registry.UpdateStep(jobID, stepID, func(rec *model.StepRecord) {
			if progress > rec.Progress {
				rec.Progress = progress
			}
		})
		p.publish(jobID, model.EventStepProgress, stepID, progress, message)
	}
}

func (p *Pipeline) publish(jobID string, kind model.EventKind, stepID model.StepID, progress int, message string) {
	p.events.Publish(model.ProgressEvent{
		Kind:      kind,
		JobID:     jobID,
		StepID:    stepID,
		Progress:  progress,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// fail handles failures that happen before any step ran.
func (p *Pipeline) fail(spec JobSpec, stepID model.StepID, msg string) {
	var jobErr *model.JobError
	if msg != "" {
		jobErr = &model.JobError{StepID: stepID, Message: msg}
	}
	p.registry.SetTerminal(spec.ID, model.JobStatusFailed, nil, jobErr)
	p.publish(spec.ID, model.EventJobFailed, stepID, 0, msg)
}

func mergeResult(dst map[string]string, src steps.Result) {
	for k, v := range src {
		dst[k] = v
	}
}
