package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/internal/llm"
	"github.com/roshanmishra15/site-builder/internal/lock"
	"github.com/roshanmishra15/site-builder/internal/logging"
	"github.com/roshanmishra15/site-builder/internal/metrics"
	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// RevisionService turns a natural-language change request into a new
// version of a project's code.
type RevisionService struct {
	stores Stores
	llm    llm.Client
	locker lock.Locker
	notify notifier
	cost   int
	logger *zap.Logger
}

// NewRevisionService creates a revision pipeline charging cost credits per run.
func NewRevisionService(stores Stores, client llm.Client, locker lock.Locker, pub Publisher, cost int, logger *zap.Logger) *RevisionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevisionService{
		stores: stores,
		llm:    client,
		locker: locker,
		notify: notifier{pub: pub, logger: logger},
		cost:   cost,
		logger: logger,
	}
}

// revisionRun carries the values produced by one pipeline execution.
type revisionRun struct {
	project  *domain.Project
	userID   string
	message  string
	charge   *domain.RevisionRun
	enhanced string
	raw      string
	code     string
	version  *domain.Version
}

// SubmitRevision runs the revision pipeline for projectID on behalf of
// userID. Validation failures leave every ledger untouched. Once the user's
// request is recorded, a failed run is refunded and reported as
// ErrGenerationFailed when the model was at fault.
func (s *RevisionService) SubmitRevision(ctx context.Context, projectID, userID, message string) error {
	log := logging.FromContext(ctx, s.logger).With(
		zap.String("project_id", projectID),
		zap.String("user_id", userID),
	)

	if err := s.precheck(ctx, projectID, userID, message); err != nil {
		metrics.RevisionsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return err
	}

	release, err := s.locker.Acquire(ctx, lock.ProjectKey(projectID))
	if err != nil {
		return fmt.Errorf("lock project: %w", err)
	}
	defer release()

	// A submitted revision runs to completion even if the caller goes away.
	ctx = logging.WithContext(context.WithoutCancel(ctx), log)

	// Re-read under the lock: current code and credits may have moved while
	// waiting. Nothing has been written yet, so a failure here is a clean reject.
	project, err := s.stores.Projects.GetOwned(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if err := s.checkBalance(ctx, userID); err != nil {
		metrics.RevisionsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return err
	}

	run := &revisionRun{project: project, userID: userID, message: message}
	err = s.pipeline(run, log).Execute(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrGenerationFailed):
		metrics.RevisionsTotal.WithLabelValues(metrics.OutcomeGenerationErr).Inc()
		return err
	case errors.Is(err, domain.ErrInsufficientCredits):
		metrics.RevisionsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return err
	default:
		metrics.RevisionsTotal.WithLabelValues(metrics.OutcomeInternalErr).Inc()
		return err
	}

	metrics.RevisionsTotal.WithLabelValues(metrics.OutcomeSucceeded).Inc()
	metrics.VersionsCommitted.WithLabelValues(domain.DescriptionRevision).Inc()

	// The version is committed; a lost notice must not turn success into failure.
	if err := say(ctx, s.stores.Conversation, s.notify, projectID, domain.RoleAssistant, noticeCompleted); err != nil {
		log.Warn("append completion notice", zap.Error(err))
	}

	log.Info("revision committed", zap.String("version_id", run.version.ID), zap.String("run_id", run.charge.ID))
	return nil
}

func (s *RevisionService) precheck(ctx context.Context, projectID, userID, message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("empty message: %w", domain.ErrInvalidRequest)
	}
	if _, err := s.stores.Projects.GetOwned(ctx, projectID, userID); err != nil {
		return err
	}
	return s.checkBalance(ctx, userID)
}

func (s *RevisionService) checkBalance(ctx context.Context, userID string) error {
	balance, err := s.stores.Credits.Balance(ctx, userID)
	if err != nil {
		return err
	}
	if balance < s.cost {
		return domain.ErrInsufficientCredits
	}
	return nil
}

// pipeline lays out the ordered steps of one revision. Refunding the charge
// is the only compensation; entries already appended stay in the log.
func (s *RevisionService) pipeline(run *revisionRun, log *zap.Logger) *Saga {
	projectID := run.project.ID

	return NewSaga("revision", log).
		AddStep(Step{
			Name: "record-request",
			Execute: func(ctx context.Context) error {
				return say(ctx, s.stores.Conversation, s.notify, projectID, domain.RoleUser, run.message)
			},
		}).
		AddStep(Step{
			Name: "charge",
			Execute: func(ctx context.Context) error {
				charge, err := s.stores.Credits.Charge(ctx, run.userID, projectID, s.cost)
				if err != nil {
					return err
				}
				run.charge = charge
				metrics.CreditsDebited.Add(float64(s.cost))
				return nil
			},
			Compensate: func(ctx context.Context, cause error) error {
				refunded, err := s.stores.Credits.Refund(ctx, run.charge.ID, cause.Error())
				if err != nil {
					return fmt.Errorf("refund run %s: %w", run.charge.ID, err)
				}
				if refunded {
					metrics.RefundsTotal.Inc()
				}
				return nil
			},
		}).
		AddStep(Step{
			Name: "enhance",
			Execute: func(ctx context.Context) error {
				started := time.Now()
				out, err := s.llm.Complete(ctx, enhancePrompt(run.message))
				metrics.ObserveLLM(metrics.StageEnhance, started, err)
				if err != nil {
					return fmt.Errorf("%w: enhance: %v", domain.ErrGenerationFailed, err)
				}
				run.enhanced = strings.TrimSpace(out)
				if run.enhanced == "" {
					run.enhanced = run.message
				}
				return nil
			},
		}).
		AddStep(Step{
			Name: "announce",
			Execute: func(ctx context.Context) error {
				if err := say(ctx, s.stores.Conversation, s.notify, projectID, domain.RoleAssistant, enhancedNotice(run.enhanced)); err != nil {
					return err
				}
				return say(ctx, s.stores.Conversation, s.notify, projectID, domain.RoleAssistant, noticeStarted)
			},
		}).
		AddStep(Step{
			Name: "generate",
			Execute: func(ctx context.Context) error {
				current := ""
				if run.project.CurrentCode != nil {
					current = *run.project.CurrentCode
				}
				started := time.Now()
				out, err := s.llm.Complete(ctx, generatePrompt(current, run.enhanced))
				metrics.ObserveLLM(metrics.StageGenerate, started, err)
				if err != nil {
					return fmt.Errorf("%w: generate: %v", domain.ErrGenerationFailed, err)
				}
				run.raw = out
				return nil
			},
		}).
		AddStep(Step{
			Name: "sanitize",
			Execute: func(ctx context.Context) error {
				run.code = SanitizeCode(run.raw)
				if run.code == "" {
					return fmt.Errorf("%w: empty output", domain.ErrGenerationFailed)
				}
				return nil
			},
		}).
		AddStep(Step{
			Name: "commit",
			Execute: func(ctx context.Context) error {
				v, err := s.stores.Versions.Commit(ctx, domain.CommitVersionInput{
					ProjectID:   projectID,
					Code:        run.code,
					Description: domain.DescriptionRevision,
					RunID:       run.charge.ID,
				})
				if err != nil {
					return err
				}
				run.version = v
				s.notify.emit(ctx, projectID, domain.VersionItem(*v))
				return nil
			},
		})
}
