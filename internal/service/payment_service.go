package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/winova/contest-api/internal/gateway"
	"github.com/winova/contest-api/internal/models"
	"github.com/winova/contest-api/internal/repository"
	appErrors "github.com/winova/contest-api/pkg/errors"
)

type paymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error)
	FindPendingByUserAndContest(ctx context.Context, userID, contestID string) (*models.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Payment, error)
	CompleteCapture(ctx context.Context, gatewayOrderID, captureID string) error
	MarkFailed(ctx context.Context, gatewayOrderID, reason string) error
	SetRefundStatus(ctx context.Context, paymentID string, from, to models.RefundStatus, refundedAt *time.Time) (bool, error)
}

type paymentEntryReader interface {
	FindByUserAndContest(ctx context.Context, userID, contestID string) (*models.Entry, error)
}

type paymentContestReader interface {
	FindByID(ctx context.Context, id string) (*models.Contest, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// InitiateChargeRequest describes a charge creation request.
type InitiateChargeRequest struct {
	ContestID string `json:"contest_id" validate:"required"`
}

// CaptureRequest carries a gateway capture notification. Notifications may
// arrive more than once; GatewayOrderID is the idempotency key.
type CaptureRequest struct {
	GatewayOrderID string `json:"gateway_order_id" validate:"required"`
	Token          string `json:"token" validate:"required"`
}

// PaymentService reconciles internal payment state with the external gateway.
type PaymentService struct {
	payments paymentRepository
	entries  paymentEntryReader
	contests paymentContestReader
	gateway  gateway.Gateway
	audit    auditWriter
	metrics  *MetricsService

	currency  string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(payments paymentRepository, entries paymentEntryReader, contests paymentContestReader, gw gateway.Gateway, audit auditWriter, metrics *MetricsService, currency string, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "USD"
	}
	return &PaymentService{
		payments:  payments,
		entries:   entries,
		contests:  contests,
		gateway:   gw,
		audit:     audit,
		metrics:   metrics,
		currency:  currency,
		validator: validate,
		logger:    logger,
	}
}

// InitiateCharge creates a PENDING payment for the caller's entry, at most
// once per (user, contest). The pending lookup is only a fast path; the
// partial unique index on open payments is what collapses concurrent
// initiations to a single row. A loser abandons its gateway order and returns
// the winner's payment.
func (s *PaymentService) InitiateCharge(ctx context.Context, userID string, req InitiateChargeRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid charge payload")
	}

	entry, err := s.entries.FindByUserAndContest(ctx, userID, req.ContestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no entry for this contest")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
	}
	switch entry.PaymentState {
	case models.PaymentStatePending:
	case models.PaymentStatePaid:
		return nil, appErrors.Clone(appErrors.ErrConflict, "entry is already paid")
	default:
		return nil, appErrors.Clone(appErrors.ErrConflict, "entry no longer accepts payment")
	}

	existing, err := s.payments.FindPendingByUserAndContest(ctx, userID, req.ContestID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up payment")
	}

	contest, err := s.contests.FindByID(ctx, req.ContestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contest not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contest")
	}

	orderID, err := s.gateway.CreateCharge(ctx, gateway.ChargeRequest{
		Amount:      contest.EntryFee,
		Currency:    s.currency,
		Description: fmt.Sprintf("Entry fee for %s", contest.Title),
	})
	if err != nil {
		s.metrics.RecordCapture("create_failed")
		return nil, appErrors.Wrap(err, appErrors.ErrGatewayFailure.Code, appErrors.ErrGatewayFailure.Status, "charge creation failed")
	}

	payment := &models.Payment{
		UserID:         userID,
		ContestID:      req.ContestID,
		Amount:         contest.EntryFee,
		Currency:       s.currency,
		GatewayOrderID: orderID,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicatePendingPayment) {
			s.logger.Warn("abandoning gateway order after losing initiation race",
				zap.String("gateway_order_id", orderID),
				zap.String("contest_id", req.ContestID))
			existing, findErr := s.payments.FindPendingByUserAndContest(ctx, userID, req.ContestID)
			if findErr != nil {
				return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up payment")
			}
			return existing, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment")
	}
	return payment, nil
}

// Capture drives the gateway capture step and, on success, promotes the
// payment to COMPLETED and the entry to PAID atomically. Safe under
// at-least-once notification delivery: a retry for an already-completed
// payment returns success without side effects, and a capture for a payment
// in any other terminal state is rejected as an illegal transition.
func (s *PaymentService) Capture(ctx context.Context, req CaptureRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid capture payload")
	}

	payment, err := s.payments.FindByOrderID(ctx, req.GatewayOrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	switch payment.Status {
	case models.PaymentStatusCompleted:
		s.logger.Info("duplicate capture notification acknowledged",
			zap.String("gateway_order_id", req.GatewayOrderID))
		s.metrics.RecordCapture("duplicate")
		return payment, nil
	case models.PaymentStatusPending:
	default:
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("payment is %s and cannot be captured", payment.Status))
	}

	captureID, err := s.gateway.CaptureCharge(ctx, req.GatewayOrderID, req.Token)
	if err != nil {
		if gateway.IsTransient(err) {
			s.metrics.RecordCapture("transient_failure")
			return nil, appErrors.Wrap(err, appErrors.ErrGatewayFailure.Code, appErrors.ErrGatewayFailure.Status, "gateway temporarily unavailable")
		}
		reason := err.Error()
		if markErr := s.payments.MarkFailed(ctx, req.GatewayOrderID, reason); markErr != nil && !errors.Is(markErr, repository.ErrNoPendingPayment) {
			return nil, appErrors.Wrap(markErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record declined payment")
		}
		s.recordAudit(ctx, models.AuditActionPaymentFailed, payment, map[string]string{"reason": reason})
		s.metrics.RecordCapture("declined")
		return nil, appErrors.Wrap(err, appErrors.ErrGatewayFailure.Code, appErrors.ErrGatewayFailure.Status, "charge was declined")
	}

	if err := s.payments.CompleteCapture(ctx, req.GatewayOrderID, captureID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNoPendingPayment):
			// Lost the race to a concurrent capture of the same order.
			refreshed, findErr := s.payments.FindByOrderID(ctx, req.GatewayOrderID)
			if findErr == nil && refreshed.Status == models.PaymentStatusCompleted {
				s.metrics.RecordCapture("duplicate")
				return refreshed, nil
			}
			return nil, appErrors.Clone(appErrors.ErrIllegalTransition, "payment is no longer capturable")
		case errors.Is(err, repository.ErrLedgerDesync):
			s.logger.Error("completed payment has no promotable entry",
				zap.String("gateway_order_id", req.GatewayOrderID),
				zap.String("user_id", payment.UserID),
				zap.String("contest_id", payment.ContestID))
			s.recordAudit(ctx, models.AuditActionInvariantViolation, payment, map[string]string{
				"detail": "capture succeeded but no pending entry exists for the payment",
			})
			s.metrics.RecordCapture("invariant_violation")
			return nil, appErrors.ErrInvariantViolation
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize capture")
		}
	}

	s.recordAudit(ctx, models.AuditActionPaymentCaptured, payment, map[string]string{"capture_id": captureID})
	s.metrics.RecordCapture("completed")

	completed, err := s.payments.FindByOrderID(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return completed, nil
}

// ListByUser returns the caller's payment history.
func (s *PaymentService) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	payments, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}

// RequestRefund opens a refund for a completed payment. Refunds never touch
// entry or qualification state.
func (s *PaymentService) RequestRefund(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition, "only completed payments can be refunded")
	}

	moved, err := s.payments.SetRefundStatus(ctx, paymentID, models.RefundStatusNone, models.RefundStatusPending, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to request refund")
	}
	if !moved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "refund already requested")
	}

	s.recordAudit(ctx, models.AuditActionRefundRequested, payment, nil)
	return s.payments.FindByID(ctx, paymentID)
}

// ResolveRefund finishes a pending refund as completed or failed.
func (s *PaymentService) ResolveRefund(ctx context.Context, paymentID string, success bool) (*models.Payment, error) {
	target := models.RefundStatusFailed
	var refundedAt *time.Time
	if success {
		target = models.RefundStatusCompleted
		now := time.Now().UTC()
		refundedAt = &now
	}

	moved, err := s.payments.SetRefundStatus(ctx, paymentID, models.RefundStatusPending, target, refundedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve refund")
	}
	if !moved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "no pending refund to resolve")
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	s.recordAudit(ctx, models.AuditActionRefundResolved, payment, map[string]string{"refund_status": string(payment.RefundStatus)})
	return payment, nil
}

func (s *PaymentService) recordAudit(ctx context.Context, action string, payment *models.Payment, extra map[string]string) {
	if s.audit == nil {
		return
	}
	detail := map[string]string{
		"gateway_order_id": payment.GatewayOrderID,
		"contest_id":       payment.ContestID,
	}
	for k, v := range extra {
		detail[k] = v
	}
	raw, _ := json.Marshal(detail)
	log := &models.AuditLog{
		UserID:     &payment.UserID,
		Action:     action,
		Resource:   "payment",
		ResourceID: &payment.ID,
		Detail:     raw,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
