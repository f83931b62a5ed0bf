package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/winova/contest-api/internal/models"
)

// ContestRepository handles persistence of contests. This service only ever
// mutates admitted_count; all other contest fields belong to the admin CRUD
// layer.
type ContestRepository struct {
	db *sqlx.DB
}

// NewContestRepository constructs the repository.
func NewContestRepository(db *sqlx.DB) *ContestRepository {
	return &ContestRepository{db: db}
}

// FindByID returns a contest by its ID.
func (r *ContestRepository) FindByID(ctx context.Context, id string) (*models.Contest, error) {
	const query = `SELECT id, title, entry_fee, capacity, admitted_count, is_active, start_time, end_time, created_at, updated_at
        FROM contests WHERE id = $1`
	var contest models.Contest
	if err := r.db.GetContext(ctx, &contest, query, id); err != nil {
		return nil, err
	}
	return &contest, nil
}

// TryReserveSlot performs the conditional admission increment. The check and
// the increment are one statement so concurrent callers can never both pass a
// stale capacity check. Returns false when the contest is full or unknown.
func (r *ContestRepository) TryReserveSlot(ctx context.Context, contestID string) (bool, error) {
	const query = `UPDATE contests
        SET admitted_count = admitted_count + 1, updated_at = NOW()
        WHERE id = $1 AND admitted_count < capacity`
	res, err := r.db.ExecContext(ctx, query, contestID)
	if err != nil {
		return false, fmt.Errorf("reserve contest slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve contest slot: %w", err)
	}
	return affected == 1, nil
}

// ReleaseSlot is the compensating decrement for a reservation that was never
// converted into a paid entry. The guard keeps admitted_count non-negative
// even under duplicated release attempts.
func (r *ContestRepository) ReleaseSlot(ctx context.Context, contestID string) error {
	const query = `UPDATE contests
        SET admitted_count = admitted_count - 1, updated_at = NOW()
        WHERE id = $1 AND admitted_count > 0`
	if _, err := r.db.ExecContext(ctx, query, contestID); err != nil {
		return fmt.Errorf("release contest slot: %w", err)
	}
	return nil
}

// CounterDrift describes a contest whose admitted_count disagrees with the
// number of entries actually holding a slot.
type CounterDrift struct {
	ContestID     string `db:"contest_id"`
	AdmittedCount int    `db:"admitted_count"`
	HeldEntries   int    `db:"held_entries"`
}

// FindCounterDrift compares admitted_count against the count of PENDING or
// PAID entries per contest. Used by the reconciliation sweep for reporting;
// discrepancies are surfaced, never auto-corrected.
func (r *ContestRepository) FindCounterDrift(ctx context.Context) ([]CounterDrift, error) {
	const query = `SELECT c.id AS contest_id, c.admitted_count,
        COUNT(e.id) FILTER (WHERE e.payment_state IN ('PENDING', 'PAID')) AS held_entries
        FROM contests c
        LEFT JOIN entries e ON e.contest_id = c.id
        GROUP BY c.id, c.admitted_count
        HAVING c.admitted_count <> COUNT(e.id) FILTER (WHERE e.payment_state IN ('PENDING', 'PAID'))`
	var drift []CounterDrift
	if err := r.db.SelectContext(ctx, &drift, query); err != nil {
		return nil, fmt.Errorf("find counter drift: %w", err)
	}
	return drift, nil
}
