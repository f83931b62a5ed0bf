package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/winova/contest-api/internal/models"
)

// ErrDuplicateEntry signals that the (user_id, contest_id) unique constraint
// rejected an insert. The constraint is the authoritative uniqueness check;
// there is deliberately no pre-insert existence lookup.
var ErrDuplicateEntry = errors.New("entry already exists for user and contest")

const pqUniqueViolation = "23505"

// EntryRepository handles persistence of contest entries.
type EntryRepository struct {
	db *sqlx.DB
}

// NewEntryRepository constructs the repository.
func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create inserts a new entry in PENDING state. Concurrent inserts for the
// same (user, contest) pair resolve at the unique index: exactly one wins,
// the rest observe ErrDuplicateEntry.
func (r *EntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.PaymentState == "" {
		entry.PaymentState = models.PaymentStatePending
	}
	if entry.QuizState == "" {
		entry.QuizState = models.QuizStateNotAttempted
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	const query = `INSERT INTO entries (id, user_id, contest_id, payment_state, quiz_state, qualified, created_at, updated_at)
        VALUES (:id, :user_id, :contest_id, :payment_state, :quiz_state, :qualified, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

// FindByID returns an entry by its ID.
func (r *EntryRepository) FindByID(ctx context.Context, id string) (*models.Entry, error) {
	const query = `SELECT id, user_id, contest_id, payment_state, quiz_state, qualified, selected_answer, quiz_submitted_at, created_at, updated_at
        FROM entries WHERE id = $1`
	var entry models.Entry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByUserAndContest returns the entry for a (user, contest) pair.
func (r *EntryRepository) FindByUserAndContest(ctx context.Context, userID, contestID string) (*models.Entry, error) {
	const query = `SELECT id, user_id, contest_id, payment_state, quiz_state, qualified, selected_answer, quiz_submitted_at, created_at, updated_at
        FROM entries WHERE user_id = $1 AND contest_id = $2`
	var entry models.Entry
	if err := r.db.GetContext(ctx, &entry, query, userID, contestID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByUser returns a user's entries with contest context, newest first.
func (r *EntryRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.EntryDetail, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT e.id, e.user_id, e.contest_id, e.payment_state, e.quiz_state, e.qualified,
        e.selected_answer, e.quiz_submitted_at, e.created_at, e.updated_at,
        c.title AS contest_title, c.entry_fee AS contest_entry_fee
        FROM entries e
        LEFT JOIN contests c ON c.id = e.contest_id
        WHERE e.user_id = $1
        ORDER BY e.created_at DESC LIMIT %d OFFSET %d`, pageSize, offset)

	var entries []models.EntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, 0, fmt.Errorf("list user entries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM entries WHERE user_id = $1", userID); err != nil {
		return nil, 0, fmt.Errorf("count user entries: %w", err)
	}
	return entries, total, nil
}

// RecordQuizResult writes the quiz fields exactly once. The WHERE clause is
// the compare-and-set: a second submission, or one racing a payment reversal,
// matches zero rows and leaves the prior result untouched.
func (r *EntryRepository) RecordQuizResult(ctx context.Context, entryID string, selectedAnswer int, qualified bool, submittedAt time.Time) (bool, error) {
	const query = `UPDATE entries
        SET quiz_state = $2, qualified = $3, selected_answer = $4, quiz_submitted_at = $5, updated_at = NOW()
        WHERE id = $1 AND quiz_state = $6 AND payment_state = $7`
	res, err := r.db.ExecContext(ctx, query, entryID,
		models.QuizStateAttempted, qualified, selectedAnswer, submittedAt,
		models.QuizStateNotAttempted, models.PaymentStatePaid)
	if err != nil {
		return false, fmt.Errorf("record quiz result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record quiz result: %w", err)
	}
	return affected == 1, nil
}

// CancelIfPending moves a PENDING entry to CANCELLED. Returns false when the
// entry already left PENDING, so callers never clobber a completed payment.
func (r *EntryRepository) CancelIfPending(ctx context.Context, entryID string) (bool, error) {
	const query = `UPDATE entries SET payment_state = $2, updated_at = NOW()
        WHERE id = $1 AND payment_state = $3`
	res, err := r.db.ExecContext(ctx, query, entryID, models.PaymentStateCancelled, models.PaymentStatePending)
	if err != nil {
		return false, fmt.Errorf("cancel entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel entry: %w", err)
	}
	return affected == 1, nil
}

// ListExpiredPending returns entries still PENDING past the given cutoff.
// Consumed by the reconciliation sweep to reclaim leaked capacity.
func (r *EntryRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT id, user_id, contest_id, payment_state, quiz_state, qualified, selected_answer, quiz_submitted_at, created_at, updated_at
        FROM entries WHERE payment_state = $1 AND created_at < $2
        ORDER BY created_at ASC LIMIT %d`, limit)
	var entries []models.Entry
	if err := r.db.SelectContext(ctx, &entries, query, models.PaymentStatePending, cutoff); err != nil {
		return nil, fmt.Errorf("list expired pending entries: %w", err)
	}
	return entries, nil
}
