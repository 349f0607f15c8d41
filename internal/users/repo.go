package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

type Repo struct {
	db             *pgxpool.Pool
	defaultCredits int
}

func NewRepo(db *pgxpool.Pool, defaultCredits int) *Repo {
	return &Repo{db: db, defaultCredits: defaultCredits}
}

type UpsertUser struct {
	FirebaseUID string
	Email       string
	DisplayName string
	PhotoURL    string
}

// ProfileUpdate carries the editable profile fields. Nil leaves a field as is.
type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

// EnsureUser returns the database id for a Firebase identity, creating the
// user with the default credit grant on first sight. Credits of an existing
// user are never touched here.
func (r *Repo) EnsureUser(ctx context.Context, u UpsertUser) (string, error) {
	if u.FirebaseUID == "" {
		return "", fmt.Errorf("firebase_uid required")
	}

	const q = `
insert into users (firebase_uid, email, display_name, photo_url, credits, updated_at)
values ($1, nullif($2,''), nullif($3,''), nullif($4,''), $5, now())
on conflict (firebase_uid) do update
set
  email = coalesce(excluded.email, users.email),
  display_name = coalesce(excluded.display_name, users.display_name),
  photo_url = coalesce(excluded.photo_url, users.photo_url),
  updated_at = now()
returning id::text;
`
	var id string
	if err := r.db.QueryRow(ctx, q, u.FirebaseUID, u.Email, u.DisplayName, u.PhotoURL, r.defaultCredits).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

const userColumns = `id::text, firebase_uid, coalesce(email,''), coalesce(display_name,''),
  coalesce(photo_url,''), credits, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.FirebaseUID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.Credits, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser returns the profile and balance of a user.
func (r *Repo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `select `+userColumns+` from users where id = $1`, userID))
}

// UpdateProfile writes the non-nil fields; an empty string clears the field.
func (r *Repo) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*domain.User, error) {
	const q = `
update users
set
  display_name = case when $2::boolean then nullif($3,'') else display_name end,
  photo_url = case when $4::boolean then nullif($5,'') else photo_url end,
  updated_at = now()
where id = $1
returning ` + userColumns

	var name, photo string
	if in.DisplayName != nil {
		name = *in.DisplayName
	}
	if in.PhotoURL != nil {
		photo = *in.PhotoURL
	}
	return scanUser(r.db.QueryRow(ctx, q, userID, in.DisplayName != nil, name, in.PhotoURL != nil, photo))
}
