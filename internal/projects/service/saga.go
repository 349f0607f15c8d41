package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Step is one stage of a saga. Compensate, when set, undoes the step after a
// later step fails and receives that failure.
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context, cause error) error
}

// Saga runs steps in order. The first failing step stops the run and the
// compensations of completed steps run in reverse order.
type Saga struct {
	name   string
	steps  []Step
	logger *zap.Logger
}

func NewSaga(name string, logger *zap.Logger) *Saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saga{name: name, logger: logger}
}

func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute returns the failing step's error wrapped with the step name, so
// callers can still match sentinel errors with errors.Is.
func (s *Saga) Execute(ctx context.Context) error {
	for i, step := range s.steps {
		s.logger.Debug("saga step",
			zap.String("saga", s.name),
			zap.String("step", step.Name),
			zap.Int("step_number", i+1),
		)

		err := step.Execute(ctx)
		if err == nil {
			continue
		}

		s.logger.Warn("saga step failed",
			zap.String("saga", s.name),
			zap.String("step", step.Name),
			zap.Error(err),
		)
		s.compensate(ctx, i, err)
		return fmt.Errorf("%s: %s: %w", s.name, step.Name, err)
	}
	return nil
}

func (s *Saga) compensate(ctx context.Context, failed int, cause error) {
	for i := failed - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx, cause); err != nil {
			// Left for the stale-run audit to report.
			s.logger.Error("saga compensation failed",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			continue
		}
		s.logger.Info("saga step compensated",
			zap.String("saga", s.name),
			zap.String("step", step.Name),
		)
	}
}
