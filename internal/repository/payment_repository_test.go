package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winova/contest-api/internal/models"
)

func TestPaymentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payment := &models.Payment{UserID: "u1", ContestID: "c1", Amount: 500, Currency: "USD", GatewayOrderID: "ord-1"}
	require.NoError(t, repo.Create(context.Background(), payment))
	assert.NotEmpty(t, payment.ID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, models.RefundStatusNone, payment.RefundStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryCreateDuplicatePending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	payment := &models.Payment{UserID: "u1", ContestID: "c1", Amount: 500, Currency: "USD", GatewayOrderID: "ord-2"}
	err := repo.Create(context.Background(), payment)
	assert.ErrorIs(t, err, ErrDuplicatePendingPayment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryCompleteCapture(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE payments").
		WithArgs("ord-1", models.PaymentStatusCompleted, "cap-1", models.PaymentStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "contest_id"}).AddRow("u1", "c1"))
	mock.ExpectExec("UPDATE entries").
		WithArgs("u1", "c1", models.PaymentStatePaid, models.PaymentStatePending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CompleteCapture(context.Background(), "ord-1", "cap-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryCompleteCaptureAlreadyCompleted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE payments").
		WithArgs("ord-1", models.PaymentStatusCompleted, "cap-1", models.PaymentStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "contest_id"}))
	mock.ExpectRollback()

	err := repo.CompleteCapture(context.Background(), "ord-1", "cap-1")
	assert.ErrorIs(t, err, ErrNoPendingPayment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryCompleteCaptureLedgerDesync(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE payments").
		WithArgs("ord-1", models.PaymentStatusCompleted, "cap-1", models.PaymentStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "contest_id"}).AddRow("u1", "c1"))
	mock.ExpectExec("UPDATE entries").
		WithArgs("u1", "c1", models.PaymentStatePaid, models.PaymentStatePending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CompleteCapture(context.Background(), "ord-1", "cap-1")
	assert.ErrorIs(t, err, ErrLedgerDesync)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryMarkFailed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("UPDATE payments").
		WithArgs("ord-1", models.PaymentStatusFailed, "card declined", models.PaymentStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailed(context.Background(), "ord-1", "card declined"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryMarkFailedNotPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("UPDATE payments").
		WithArgs("ord-1", models.PaymentStatusFailed, "card declined", models.PaymentStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkFailed(context.Background(), "ord-1", "card declined")
	assert.ErrorIs(t, err, ErrNoPendingPayment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositorySetRefundStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("UPDATE payments").
		WithArgs("p1", models.RefundStatusNone, models.RefundStatusPending, nil, models.PaymentStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	moved, err := repo.SetRefundStatus(context.Background(), "p1", models.RefundStatusNone, models.RefundStatusPending, nil)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositorySetRefundStatusWrongState(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE payments").
		WithArgs("p1", models.RefundStatusPending, models.RefundStatusCompleted, &now, models.PaymentStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err := repo.SetRefundStatus(context.Background(), "p1", models.RefundStatusPending, models.RefundStatusCompleted, &now)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryFindByOrderID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "contest_id", "amount", "currency", "gateway_order_id", "gateway_capture_id", "status", "failure_reason", "refund_status", "refunded_at", "created_at", "updated_at"}).
		AddRow("p1", "u1", "c1", int64(500), "USD", "ord-1", "", "PENDING", "", "NONE", nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM payments WHERE gateway_order_id").
		WithArgs("ord-1").
		WillReturnRows(rows)

	payment, err := repo.FindByOrderID(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "p1", payment.ID)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
