package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/winova/contest-api/internal/models"
)

var (
	// ErrDuplicatePendingPayment signals that the partial unique index on open
	// payments rejected an insert: another PENDING payment already holds the
	// (user_id, contest_id) pair. The index is the authoritative check; the
	// pre-insert lookup is only a fast path.
	ErrDuplicatePendingPayment = errors.New("pending payment already exists for user and contest")
	// ErrNoPendingPayment signals that a state transition found no PENDING
	// payment to act on (already terminal, or unknown order).
	ErrNoPendingPayment = errors.New("no pending payment for transition")
	// ErrLedgerDesync signals that a completed capture found no PENDING entry
	// to promote. This is the capacity/ledger desynchronization case and must
	// be surfaced, never repaired in place.
	ErrLedgerDesync = errors.New("no pending entry for completed payment")
)

// PaymentRepository handles persistence of payments and the transactional
// entry promotion on capture.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create persists a new PENDING payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	if payment.RefundStatus == "" {
		payment.RefundStatus = models.RefundStatusNone
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	const query = `INSERT INTO payments (id, user_id, contest_id, amount, currency, gateway_order_id, gateway_capture_id, status, failure_reason, refund_status, created_at, updated_at)
        VALUES (:id, :user_id, :contest_id, :amount, :currency, :gateway_order_id, :gateway_capture_id, :status, :failure_reason, :refund_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicatePendingPayment
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

const paymentColumns = `id, user_id, contest_id, amount, currency, gateway_order_id, gateway_capture_id, status, failure_reason, refund_status, refunded_at, created_at, updated_at`

// FindByID returns a payment by its ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	query := fmt.Sprintf("SELECT %s FROM payments WHERE id = $1", paymentColumns)
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByOrderID returns the payment holding the external order reference.
func (r *PaymentRepository) FindByOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	var payment models.Payment
	query := fmt.Sprintf("SELECT %s FROM payments WHERE gateway_order_id = $1", paymentColumns)
	if err := r.db.GetContext(ctx, &payment, query, gatewayOrderID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindPendingByUserAndContest returns an open payment for the pair, if any.
// Backs the idempotency of InitiateCharge.
func (r *PaymentRepository) FindPendingByUserAndContest(ctx context.Context, userID, contestID string) (*models.Payment, error) {
	var payment models.Payment
	query := fmt.Sprintf("SELECT %s FROM payments WHERE user_id = $1 AND contest_id = $2 AND status = $3 ORDER BY created_at DESC LIMIT 1", paymentColumns)
	if err := r.db.GetContext(ctx, &payment, query, userID, contestID, models.PaymentStatusPending); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByUser returns a user's payments, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	var payments []models.Payment
	query := fmt.Sprintf("SELECT %s FROM payments WHERE user_id = $1 ORDER BY created_at DESC", paymentColumns)
	if err := r.db.SelectContext(ctx, &payments, query, userID); err != nil {
		return nil, fmt.Errorf("list user payments: %w", err)
	}
	return payments, nil
}

// CompleteCapture promotes a PENDING payment to COMPLETED and the associated
// entry to PAID in one transaction. The payment update is a compare-and-set
// keyed by the external order reference, so a duplicate capture notification
// matches zero rows and returns ErrNoPendingPayment instead of re-applying
// side effects. A missing promotable entry rolls everything back and returns
// ErrLedgerDesync.
func (r *PaymentRepository) CompleteCapture(ctx context.Context, gatewayOrderID, captureID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin capture tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const promote = `UPDATE payments
        SET status = $2, gateway_capture_id = $3, updated_at = NOW()
        WHERE gateway_order_id = $1 AND status = $4
        RETURNING user_id, contest_id`
	var userID, contestID string
	err = tx.QueryRowxContext(ctx, promote, gatewayOrderID, models.PaymentStatusCompleted, captureID, models.PaymentStatusPending).
		Scan(&userID, &contestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoPendingPayment
		}
		return fmt.Errorf("complete payment: %w", err)
	}

	const pay = `UPDATE entries SET payment_state = $3, updated_at = NOW()
        WHERE user_id = $1 AND contest_id = $2 AND payment_state = $4`
	res, err := tx.ExecContext(ctx, pay, userID, contestID, models.PaymentStatePaid, models.PaymentStatePending)
	if err != nil {
		return fmt.Errorf("promote entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("promote entry: %w", err)
	}
	if affected != 1 {
		return ErrLedgerDesync
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit capture tx: %w", err)
	}
	return nil
}

// MarkFailed records a declined capture. CAS on PENDING so a late failure
// notification can never flip an already-completed payment.
func (r *PaymentRepository) MarkFailed(ctx context.Context, gatewayOrderID, reason string) error {
	const query = `UPDATE payments SET status = $2, failure_reason = $3, updated_at = NOW()
        WHERE gateway_order_id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, gatewayOrderID, models.PaymentStatusFailed, reason, models.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	if affected != 1 {
		return ErrNoPendingPayment
	}
	return nil
}

// MarkCancelled voids a PENDING payment, used when its reservation expires.
func (r *PaymentRepository) MarkCancelled(ctx context.Context, userID, contestID string) error {
	const query = `UPDATE payments SET status = $3, updated_at = NOW()
        WHERE user_id = $1 AND contest_id = $2 AND status = $4`
	if _, err := r.db.ExecContext(ctx, query, userID, contestID, models.PaymentStatusCancelled, models.PaymentStatusPending); err != nil {
		return fmt.Errorf("cancel payment: %w", err)
	}
	return nil
}

// SetRefundStatus moves refund_status along its state machine. The expected
// prior status makes the update a compare-and-set.
func (r *PaymentRepository) SetRefundStatus(ctx context.Context, paymentID string, from, to models.RefundStatus, refundedAt *time.Time) (bool, error) {
	const query = `UPDATE payments SET refund_status = $3, refunded_at = COALESCE($4, refunded_at), updated_at = NOW()
        WHERE id = $1 AND refund_status = $2 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, paymentID, from, to, refundedAt, models.PaymentStatusCompleted)
	if err != nil {
		return false, fmt.Errorf("set refund status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set refund status: %w", err)
	}
	return affected == 1, nil
}
