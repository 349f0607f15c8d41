package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/roshanmishra15/site-builder/internal/lock"
	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// ProjectService handles project-related business logic
type ProjectService struct {
	stores Stores
	locker lock.Locker
}

// NewProjectService creates a new project service
func NewProjectService(stores Stores, locker lock.Locker) *ProjectService {
	return &ProjectService{stores: stores, locker: locker}
}

// Create creates a new project
func (s *ProjectService) Create(ctx context.Context, userID, name, initialPrompt string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty name: %w", domain.ErrInvalidRequest)
	}
	return s.stores.Projects.Create(ctx, domain.CreateProjectInput{
		UserID:        userID,
		Name:          name,
		InitialPrompt: strings.TrimSpace(initialPrompt),
	})
}

// List returns all projects for a user
func (s *ProjectService) List(ctx context.Context, userID string) ([]domain.Project, error) {
	return s.stores.Projects.ListOwned(ctx, userID)
}

// Preview returns the owner's current code. A project with no code yet is
// reported as not found.
func (s *ProjectService) Preview(ctx context.Context, projectID, userID string) (string, error) {
	p, err := s.stores.Projects.GetOwned(ctx, projectID, userID)
	if err != nil {
		return "", err
	}
	if p.CurrentCode == nil {
		return "", domain.ErrNotFound
	}
	return *p.CurrentCode, nil
}

// VersionCode returns the code of one version of an owned project.
func (s *ProjectService) VersionCode(ctx context.Context, projectID, userID, versionID string) (string, error) {
	if _, err := s.stores.Projects.GetOwned(ctx, projectID, userID); err != nil {
		return "", err
	}
	v, err := s.stores.Versions.Get(ctx, projectID, versionID)
	if err != nil {
		return "", err
	}
	return v.Code, nil
}

// PublishedCode returns the current code of a published project.
func (s *ProjectService) PublishedCode(ctx context.Context, projectID string) (string, error) {
	p, err := s.stores.Projects.GetPublished(ctx, projectID)
	if err != nil {
		return "", err
	}
	if p.CurrentCode == nil {
		return "", domain.ErrNotFound
	}
	return *p.CurrentCode, nil
}

// ListPublished returns every published project
func (s *ProjectService) ListPublished(ctx context.Context) ([]domain.PublishedProject, error) {
	return s.stores.Projects.ListPublished(ctx)
}

// SetPublished toggles whether a project is publicly visible
func (s *ProjectService) SetPublished(ctx context.Context, projectID, userID string, published bool) (*domain.Project, error) {
	return s.stores.Projects.SetPublished(ctx, projectID, userID, published)
}

// Delete removes a project together with its ledgers. It waits for any
// in-flight mutation of the project to finish first.
func (s *ProjectService) Delete(ctx context.Context, projectID, userID string) error {
	if _, err := s.stores.Projects.GetOwned(ctx, projectID, userID); err != nil {
		return err
	}

	release, err := s.locker.Acquire(ctx, lock.ProjectKey(projectID))
	if err != nil {
		return fmt.Errorf("lock project: %w", err)
	}
	defer release()

	ok, err := s.stores.Projects.Delete(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// Balance returns the user's credits
func (s *ProjectService) Balance(ctx context.Context, userID string) (int, error) {
	return s.stores.Credits.Balance(ctx, userID)
}

// Get returns an owned project
func (s *ProjectService) Get(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	return s.stores.Projects.GetOwned(ctx, projectID, userID)
}
