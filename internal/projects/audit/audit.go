// Package audit reports revision runs that were charged but never settled.
// It only detects them; nothing here moves credits.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/internal/metrics"
	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// RunSource lists runs still debited after olderThan.
type RunSource interface {
	StaleRuns(ctx context.Context, olderThan time.Duration) ([]domain.RevisionRun, error)
}

type Auditor struct {
	runs       RunSource
	staleAfter time.Duration
	logger     *zap.Logger
}

func NewAuditor(runs RunSource, staleAfter time.Duration, logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{runs: runs, staleAfter: staleAfter, logger: logger}
}

// Run performs one audit pass and returns the stale runs it found.
func (a *Auditor) Run(ctx context.Context) ([]domain.RevisionRun, error) {
	stale, err := a.runs.StaleRuns(ctx, a.staleAfter)
	if err != nil {
		return nil, fmt.Errorf("list stale runs: %w", err)
	}

	metrics.StaleRuns.Set(float64(len(stale)))
	for _, run := range stale {
		a.logger.Warn("revision run left debited",
			zap.String("run_id", run.ID),
			zap.String("user_id", run.UserID),
			zap.String("project_id", run.ProjectID),
			zap.Int("amount", run.Amount),
			zap.Time("created_at", run.CreatedAt),
		)
	}
	if len(stale) == 0 {
		a.logger.Debug("no stale revision runs")
	}
	return stale, nil
}

// Scheduler runs the auditor on a cron schedule (seconds field included).
type Scheduler struct {
	auditor  *Auditor
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewScheduler(auditor *Auditor, schedule string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{auditor: auditor, schedule: schedule, logger: logger}
}

// Start registers the audit job and starts the cron runner.
func (s *Scheduler) Start() error {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.auditor.Run(ctx); err != nil {
			s.logger.Error("stale run audit failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule audit %q: %w", s.schedule, err)
	}

	s.cron = c
	c.Start()
	s.logger.Info("audit scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running audit to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
