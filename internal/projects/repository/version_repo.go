package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// VersionRepository is the append-only version ledger plus the project's
// current pointer.
type VersionRepository struct {
	db *sql.DB
}

func NewVersionRepository(db *sql.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

const versionColumns = `id, project_id, code, description, seq, created_at`

func scanVersion(row rowScanner) (*domain.Version, error) {
	var v domain.Version
	if err := row.Scan(&v.ID, &v.ProjectID, &v.Code, &v.Description, &v.Seq, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// lockProject takes the project row lock for the rest of the transaction.
func lockProject(ctx context.Context, tx *sql.Tx, projectID string) error {
	var id string
	err := tx.QueryRowContext(ctx, `
SELECT id
FROM projects
WHERE id = $1
FOR UPDATE`, projectID).Scan(&id)
	return mapNoRows(err)
}

func setCurrent(ctx context.Context, tx *sql.Tx, projectID string, v *domain.Version) error {
	_, err := tx.ExecContext(ctx, `
UPDATE projects
SET current_code = $2,
    current_version_id = $3,
    updated_at = now()
WHERE id = $1`, projectID, v.Code, v.ID)
	return err
}

// Commit appends a version and advances the project's current pointer to it
// in one transaction. With in.RunID set, the revision run is settled as
// completed in the same transaction; a run that already left the debited
// state aborts the commit with ErrRunSettled.
func (r *VersionRepository) Commit(ctx context.Context, in domain.CommitVersionInput) (*domain.Version, error) {
	if strings.TrimSpace(in.Code) == "" {
		return nil, fmt.Errorf("code required: %w", domain.ErrInvalidRequest)
	}
	if !validIDs(in.ProjectID) {
		return nil, domain.ErrNotFound
	}
	if in.RunID != "" && !validIDs(in.RunID) {
		return nil, domain.ErrRunSettled
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockProject(ctx, tx, in.ProjectID); err != nil {
		return nil, err
	}

	v, err := scanVersion(tx.QueryRowContext(ctx, `
INSERT INTO versions (project_id, code, description)
VALUES ($1, $2, $3)
RETURNING `+versionColumns, in.ProjectID, in.Code, in.Description))
	if err != nil {
		return nil, err
	}

	if err := setCurrent(ctx, tx, in.ProjectID, v); err != nil {
		return nil, err
	}

	if in.RunID != "" {
		res, err := tx.ExecContext(ctx, `
UPDATE revision_runs
SET status = 'completed', version_id = $2, settled_at = now()
WHERE id = $1 AND status = 'debited'`, in.RunID, v.ID)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, domain.ErrRunSettled
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return v, nil
}

// Activate repoints the project's current pointer at an existing version.
func (r *VersionRepository) Activate(ctx context.Context, projectID, versionID string) (*domain.Version, error) {
	if !validIDs(projectID, versionID) {
		return nil, domain.ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockProject(ctx, tx, projectID); err != nil {
		return nil, err
	}

	v, err := scanVersion(tx.QueryRowContext(ctx, `
SELECT `+versionColumns+`
FROM versions
WHERE id = $1 AND project_id = $2`, versionID, projectID))
	if err != nil {
		return nil, mapNoRows(err)
	}

	if err := setCurrent(ctx, tx, projectID, v); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return v, nil
}

// Get returns one version of a project.
func (r *VersionRepository) Get(ctx context.Context, projectID, versionID string) (*domain.Version, error) {
	if !validIDs(projectID, versionID) {
		return nil, domain.ErrNotFound
	}

	v, err := scanVersion(r.db.QueryRowContext(ctx, `
SELECT `+versionColumns+`
FROM versions
WHERE id = $1 AND project_id = $2`, versionID, projectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// List returns a project's versions in ledger order.
func (r *VersionRepository) List(ctx context.Context, projectID string) ([]domain.Version, error) {
	if !validIDs(projectID) {
		return []domain.Version{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+versionColumns+`
FROM versions
WHERE project_id = $1
ORDER BY created_at, seq`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Version, 0, 16)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}
