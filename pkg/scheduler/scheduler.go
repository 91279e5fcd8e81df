// Package scheduler keeps an in-memory table of recurring workflow jobs and
// submits an execution whenever a job comes due.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/persistence"
	"github.com/flowkite/flowkite/pkg/queue"
)

const defaultTickInterval = 1 * time.Minute

// TriggerScheduled tags executions created by the scheduler.
const TriggerScheduled = "scheduled"

// Submitter admits an execution for a workflow. Satisfied by the admission
// queue.
type Submitter interface {
	Submit(ctx context.Context, workflowID, owner string, options queue.SubmitOptions) (string, error)
}

// Status is the scheduler's point-in-time view.
type Status struct {
	Running  bool `json:"running"`
	JobCount int  `json:"job_count"`
}

type Scheduler struct {
	persistence  persistence.Persistence
	submitter    Submitter
	logger       *slog.Logger
	tickInterval time.Duration

	mu      sync.Mutex
	jobs    map[string]*models.ScheduledJob
	running bool

	done chan struct{}
}

func NewScheduler(store persistence.Persistence, submitter Submitter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		persistence:  store,
		submitter:    submitter,
		logger:       logger.With("module", "scheduler"),
		tickInterval: defaultTickInterval,
		jobs:         make(map[string]*models.ScheduledJob),
		done:         make(chan struct{}),
	}
}

// Start loads persisted jobs into the in-memory table and begins ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs, err := s.persistence.ScheduleRepository().GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scheduled jobs: %w", err)
	}

	now := time.Now().UTC()

	s.mu.Lock()
	for _, job := range jobs {
		if job.NextRun.IsZero() {
			nextRun, err := job.Config.NextRun(now)
			if err != nil {
				s.logger.Warn("Skipping job with invalid schedule",
					"workflow_id", job.WorkflowID, "error", err)

				continue
			}

			job.NextRun = nextRun
		}

		s.jobs[job.WorkflowID] = job
	}

	s.running = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Scheduler started", "jobs", len(jobs))

	go func() {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.setRunning(false)

				return
			case <-s.done:
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()

	return nil
}

// Stop halts the tick loop. Persisted jobs survive for the next start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	close(s.done)
}

// Schedule validates the config, computes the first due time and persists
// the job. Scheduling a workflow that already has a job replaces it.
func (s *Scheduler) Schedule(ctx context.Context, workflowID string, config models.ScheduleConfig, owner string) (*models.ScheduledJob, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule for workflow %s: %w", workflowID, err)
	}

	if _, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID); err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	now := time.Now().UTC()

	nextRun, err := config.NextRun(now)
	if err != nil {
		return nil, fmt.Errorf("cannot compute next run for workflow %s: %w", workflowID, err)
	}

	job := &models.ScheduledJob{
		WorkflowID: workflowID,
		Owner:      owner,
		Config:     config,
		Enabled:    true,
		NextRun:    nextRun,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.persistence.ScheduleRepository().Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist schedule for workflow %s: %w", workflowID, err)
	}

	s.mu.Lock()
	s.jobs[workflowID] = job
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Workflow scheduled",
		"workflow_id", workflowID,
		"kind", config.Kind,
		"next_run", nextRun)

	return job, nil
}

// Unschedule removes the workflow's job from the table and the store.
func (s *Scheduler) Unschedule(ctx context.Context, workflowID string) error {
	s.mu.Lock()
	delete(s.jobs, workflowID)
	s.mu.Unlock()

	if err := s.persistence.ScheduleRepository().Delete(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to delete schedule for workflow %s: %w", workflowID, err)
	}

	s.logger.InfoContext(ctx, "Workflow unscheduled", "workflow_id", workflowID)

	return nil
}

// Status reports whether the tick loop runs and how many jobs are tracked.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{Running: s.running, JobCount: len(s.jobs)}
}

func (s *Scheduler) setRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = running
}

// tick submits every due job and recomputes its next due time from the
// post-run clock, so a slow tick never causes double submission.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().UTC()

	s.mu.Lock()
	due := make([]*models.ScheduledJob, 0)

	for _, job := range s.jobs {
		if job.Enabled && job.Due(now) {
			due = append(due, job)
		}
	}
	s.mu.Unlock()

	for _, job := range due {
		s.fire(ctx, job)
	}
}

func (s *Scheduler) fire(ctx context.Context, job *models.ScheduledJob) {
	logger := s.logger.With("workflow_id", job.WorkflowID)

	executionID, err := s.submitter.Submit(ctx, job.WorkflowID, job.Owner, queue.SubmitOptions{
		Trigger: TriggerScheduled,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to submit scheduled execution", "error", err)
	} else {
		logger.InfoContext(ctx, "Scheduled execution submitted", "execution_id", executionID)
	}

	completedAt := time.Now().UTC()

	nextRun, nextErr := job.Config.NextRun(completedAt)

	// A concurrent Schedule or Unschedule may have swapped the table entry
	// while this fire ran; rescheduling or persisting the stale job would
	// overwrite the new configuration.
	s.mu.Lock()
	if current, tracked := s.jobs[job.WorkflowID]; !tracked || current != job {
		s.mu.Unlock()

		logger.InfoContext(ctx, "Job replaced during fire, skipping reschedule")

		return
	}

	if nextErr != nil {
		// Bad cron expressions stay in the table but never fire again
		// until corrected.
		job.Enabled = false
	} else {
		job.LastRun = &completedAt
		job.NextRun = nextRun
		job.UpdatedAt = completedAt
	}
	s.mu.Unlock()

	if nextErr != nil {
		logger.ErrorContext(ctx, "Cannot compute next run, disabling job", "error", nextErr)
	}

	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.persistence.ScheduleRepository().Save(persistCtx, job); err != nil {
		logger.ErrorContext(persistCtx, "Failed to persist job after firing", "error", err)
	}
}
