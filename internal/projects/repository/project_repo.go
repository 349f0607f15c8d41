package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// ProjectRepository provides persistence operations for projects
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, user_id, name, COALESCE(initial_prompt, ''), current_code,
       current_version_id, is_published, created_at, updated_at`

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var code, versionID sql.NullString
	if err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.InitialPrompt, &code,
		&versionID, &p.IsPublished, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.CurrentCode = nullableString(code)
	p.CurrentVersionID = nullableString(versionID)
	return &p, nil
}

// Create inserts a new project for the given user.
func (r *ProjectRepository) Create(ctx context.Context, in domain.CreateProjectInput) (*domain.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("name required: %w", domain.ErrInvalidRequest)
	}
	if !validIDs(in.UserID) {
		return nil, domain.ErrNotFound
	}

	q := `
INSERT INTO projects (user_id, name, initial_prompt)
VALUES ($1, $2, NULLIF($3, ''))
RETURNING ` + projectColumns
	p, err := scanProject(r.db.QueryRowContext(ctx, q, in.UserID, in.Name, in.InitialPrompt))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetOwned returns the project when it exists and belongs to userID.
func (r *ProjectRepository) GetOwned(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	if !validIDs(projectID, userID) {
		return nil, domain.ErrNotFound
	}

	q := `SELECT ` + projectColumns + `
FROM projects
WHERE id = $1 AND user_id = $2`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, projectID, userID))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return p, nil
}

// GetPublished returns a published project regardless of owner.
func (r *ProjectRepository) GetPublished(ctx context.Context, projectID string) (*domain.Project, error) {
	if !validIDs(projectID) {
		return nil, domain.ErrNotFound
	}

	q := `SELECT ` + projectColumns + `
FROM projects
WHERE id = $1 AND is_published`
	p, err := scanProject(r.db.QueryRowContext(ctx, q, projectID))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return p, nil
}

// ListOwned returns all projects for the given user, newest first.
func (r *ProjectRepository) ListOwned(ctx context.Context, userID string) ([]domain.Project, error) {
	if !validIDs(userID) {
		return []domain.Project{}, nil
	}

	q := `SELECT ` + projectColumns + `
FROM projects
WHERE user_id = $1
ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPublished returns every published project with its owner's name.
func (r *ProjectRepository) ListPublished(ctx context.Context) ([]domain.PublishedProject, error) {
	const q = `
SELECT p.id, p.user_id, p.name, COALESCE(p.initial_prompt, ''), p.current_code,
       p.current_version_id, p.is_published, p.created_at, p.updated_at,
       COALESCE(u.display_name, '')
FROM projects p
JOIN users u ON u.id = p.user_id
WHERE p.is_published
ORDER BY p.updated_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.PublishedProject, 0, 16)
	for rows.Next() {
		var pp domain.PublishedProject
		var code, versionID sql.NullString
		if err := rows.Scan(
			&pp.ID, &pp.UserID, &pp.Name, &pp.InitialPrompt, &code,
			&versionID, &pp.IsPublished, &pp.CreatedAt, &pp.UpdatedAt,
			&pp.OwnerName,
		); err != nil {
			return nil, err
		}
		pp.CurrentCode = nullableString(code)
		pp.CurrentVersionID = nullableString(versionID)
		out = append(out, pp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SetPublished flips the published flag on an owned project.
func (r *ProjectRepository) SetPublished(ctx context.Context, projectID, userID string, published bool) (*domain.Project, error) {
	if !validIDs(projectID, userID) {
		return nil, domain.ErrNotFound
	}

	q := `
UPDATE projects
SET is_published = $3, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + projectColumns
	p, err := scanProject(r.db.QueryRowContext(ctx, q, projectID, userID, published))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return p, nil
}

// Delete removes an owned project. Versions and conversation entries go with
// it through ON DELETE CASCADE.
func (r *ProjectRepository) Delete(ctx context.Context, projectID, userID string) (bool, error) {
	if !validIDs(projectID, userID) {
		return false, nil
	}

	const q = `DELETE FROM projects WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, q, projectID, userID)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}
