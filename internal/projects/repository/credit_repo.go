package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// CreditRepository is the credit ledger: users.credits plus the
// revision_runs journal that keeps refunds exactly-once.
type CreditRepository struct {
	db *sql.DB
}

func NewCreditRepository(db *sql.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// Balance returns the user's spendable credits.
func (r *CreditRepository) Balance(ctx context.Context, userID string) (int, error) {
	if !validIDs(userID) {
		return 0, domain.ErrNotFound
	}

	var credits int
	err := r.db.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	if err != nil {
		return 0, mapNoRows(err)
	}
	return credits, nil
}

// Debit subtracts amount when the balance covers it, as one guarded UPDATE.
// It is the ledger's raw debit; the revision pipeline goes through Charge,
// which runs the same guarded UPDATE together with the journal insert.
func (r *CreditRepository) Debit(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount %d: %w", amount, domain.ErrInvalidRequest)
	}
	if !validIDs(userID) {
		return 0, domain.ErrNotFound
	}
	return debit(ctx, r.db, userID, amount)
}

// Credit adds amount back to the user's balance. Refund applies the same
// increment in its own transaction, guarded by the journal row.
func (r *CreditRepository) Credit(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount %d: %w", amount, domain.ErrInvalidRequest)
	}
	if !validIDs(userID) {
		return 0, domain.ErrNotFound
	}
	return credit(ctx, r.db, userID, amount)
}

func debit(ctx context.Context, q querier, userID string, amount int) (int, error) {
	var balance int
	err := q.QueryRowContext(ctx, `
UPDATE users
SET credits = credits - $2, updated_at = now()
WHERE id = $1 AND credits >= $2
RETURNING credits`, userID, amount).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if isCheckViolation(err) {
		return 0, domain.ErrInsufficientCredits
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	// Guard failed: either the user is missing or the balance is short.
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, domain.ErrNotFound
	}
	return 0, domain.ErrInsufficientCredits
}

func credit(ctx context.Context, q querier, userID string, amount int) (int, error) {
	var balance int
	err := q.QueryRowContext(ctx, `
UPDATE users
SET credits = credits + $2, updated_at = now()
WHERE id = $1
RETURNING credits`, userID, amount).Scan(&balance)
	if err != nil {
		return 0, mapNoRows(err)
	}
	return balance, nil
}

// Charge debits amount and opens a revision run in the debited state.
func (r *CreditRepository) Charge(ctx context.Context, userID, projectID string, amount int) (*domain.RevisionRun, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("charge amount %d: %w", amount, domain.ErrInvalidRequest)
	}
	if !validIDs(userID, projectID) {
		return nil, domain.ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := debit(ctx, tx, userID, amount); err != nil {
		return nil, err
	}

	run := domain.RevisionRun{
		UserID:    userID,
		ProjectID: projectID,
		Amount:    amount,
		Status:    domain.RunDebited,
	}
	err = tx.QueryRowContext(ctx, `
INSERT INTO revision_runs (user_id, project_id, amount, status)
VALUES ($1, $2, $3, 'debited')
RETURNING id, created_at`, userID, projectID, amount).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &run, nil
}

// Refund settles a debited run as refunded and credits its amount back.
// It returns false without touching the balance when the run was already
// settled, so repeated calls for one run refund at most once.
func (r *CreditRepository) Refund(ctx context.Context, runID, reason string) (bool, error) {
	if !validIDs(runID) {
		return false, domain.ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var userID string
	var amount int
	err = tx.QueryRowContext(ctx, `
UPDATE revision_runs
SET status = 'refunded', failure = NULLIF($2, ''), settled_at = now()
WHERE id = $1 AND status = 'debited'
RETURNING user_id, amount`, runID, reason).Scan(&userID, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := credit(ctx, tx, userID, amount); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// StaleRuns lists runs still debited after olderThan.
func (r *CreditRepository) StaleRuns(ctx context.Context, olderThan time.Duration) ([]domain.RevisionRun, error) {
	cutoff := time.Now().Add(-olderThan)

	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, COALESCE(project_id::text, ''), amount, status, created_at
FROM revision_runs
WHERE status = 'debited' AND created_at < $1
ORDER BY created_at`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.RevisionRun, 0, 8)
	for rows.Next() {
		var run domain.RevisionRun
		if err := rows.Scan(&run.ID, &run.UserID, &run.ProjectID, &run.Amount, &run.Status, &run.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
