package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// ConversationRepository is the append-only conversation log.
type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Append records one entry and returns it with its id, seq and timestamp.
func (r *ConversationRepository) Append(ctx context.Context, projectID string, role domain.Role, content string) (*domain.ConversationEntry, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("role %q: %w", role, domain.ErrInvalidRequest)
	}
	if !validIDs(projectID) {
		return nil, domain.ErrNotFound
	}

	var e domain.ConversationEntry
	err := r.db.QueryRowContext(ctx, `
INSERT INTO conversation_entries (project_id, role, content)
VALUES ($1, $2, $3)
RETURNING id, project_id, role, content, seq, created_at`, projectID, string(role), content).
		Scan(&e.ID, &e.ProjectID, &e.Role, &e.Content, &e.Seq, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns a project's entries in log order.
func (r *ConversationRepository) List(ctx context.Context, projectID string) ([]domain.ConversationEntry, error) {
	if !validIDs(projectID) {
		return []domain.ConversationEntry{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, project_id, role, content, seq, created_at
FROM conversation_entries
WHERE project_id = $1
ORDER BY created_at, seq`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ConversationEntry, 0, 32)
	for rows.Next() {
		var e domain.ConversationEntry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Role, &e.Content, &e.Seq, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
