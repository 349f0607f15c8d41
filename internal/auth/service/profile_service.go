package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
	"github.com/roshanmishra15/site-builder/internal/users"
)

// UserStore is backed by users.Repo in production and the memory store in
// development.
type UserStore interface {
	EnsureUser(ctx context.Context, u users.UpsertUser) (string, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, in users.ProfileUpdate) (*domain.User, error)
}

type ProfileService struct {
	users UserStore
}

func NewProfileService(store UserStore) *ProfileService {
	return &ProfileService{users: store}
}

// Profile returns the user's profile including the credit balance.
func (s *ProfileService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetUser(ctx, userID)
}

// Sync creates or refreshes the user from identity data. Empty fields keep
// what is stored; credits are only granted on creation.
func (s *ProfileService) Sync(ctx context.Context, in users.UpsertUser) (*domain.User, error) {
	if strings.TrimSpace(in.FirebaseUID) == "" {
		return nil, domain.ErrUnauthenticated
	}
	id, err := s.users.EnsureUser(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("sync user: %w", err)
	}
	return s.users.GetUser(ctx, id)
}

// Update changes the editable profile fields.
func (s *ProfileService) Update(ctx context.Context, userID string, in users.ProfileUpdate) (*domain.User, error) {
	if in.DisplayName == nil && in.PhotoURL == nil {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrInvalidRequest)
	}
	if in.DisplayName != nil {
		trimmed := strings.TrimSpace(*in.DisplayName)
		in.DisplayName = &trimmed
	}
	return s.users.UpdateProfile(ctx, userID, in)
}
