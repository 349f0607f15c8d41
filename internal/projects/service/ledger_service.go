package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/internal/lock"
	"github.com/roshanmishra15/site-builder/internal/logging"
	"github.com/roshanmishra15/site-builder/internal/metrics"
	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// LedgerService moves the current pointer without the model: rollback to an
// earlier version and direct saves.
type LedgerService struct {
	stores Stores
	locker lock.Locker
	notify notifier
	logger *zap.Logger
}

func NewLedgerService(stores Stores, locker lock.Locker, pub Publisher, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		stores: stores,
		locker: locker,
		notify: notifier{pub: pub, logger: logger},
		logger: logger,
	}
}

// Rollback points the project at one of its existing versions. Repeating it
// for the same version leaves the pointer where it is.
func (s *LedgerService) Rollback(ctx context.Context, projectID, userID, versionID string) error {
	if _, err := s.stores.Projects.GetOwned(ctx, projectID, userID); err != nil {
		return err
	}

	release, err := s.locker.Acquire(ctx, lock.ProjectKey(projectID))
	if err != nil {
		return fmt.Errorf("lock project: %w", err)
	}
	defer release()

	v, err := s.stores.Versions.Activate(ctx, projectID, versionID)
	if err != nil {
		return err
	}

	log := logging.FromContext(ctx, s.logger)
	if err := say(ctx, s.stores.Conversation, s.notify, projectID, domain.RoleAssistant, noticeRolledBack); err != nil {
		log.Warn("append rollback notice", zap.String("project_id", projectID), zap.Error(err))
	}
	log.Info("project rolled back", zap.String("project_id", projectID), zap.String("version_id", v.ID))
	return nil
}

// Save commits code as a new version without touching credits or the model.
func (s *LedgerService) Save(ctx context.Context, projectID, userID, code string) (*domain.Version, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("empty code: %w", domain.ErrInvalidRequest)
	}
	if _, err := s.stores.Projects.GetOwned(ctx, projectID, userID); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, lock.ProjectKey(projectID))
	if err != nil {
		return nil, fmt.Errorf("lock project: %w", err)
	}
	defer release()

	v, err := s.stores.Versions.Commit(ctx, domain.CommitVersionInput{
		ProjectID:   projectID,
		Code:        code,
		Description: domain.DescriptionManualSave,
	})
	if err != nil {
		return nil, err
	}
	metrics.VersionsCommitted.WithLabelValues(domain.DescriptionManualSave).Inc()
	s.notify.emit(ctx, projectID, domain.VersionItem(*v))
	return v, nil
}
