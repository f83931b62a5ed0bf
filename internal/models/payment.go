package models

import "time"

// PaymentStatus tracks the gateway-facing state of a charge.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// RefundStatus tracks the refund sub-state of a completed payment.
type RefundStatus string

const (
	RefundStatusNone      RefundStatus = "NONE"
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusCompleted RefundStatus = "COMPLETED"
	RefundStatusFailed    RefundStatus = "FAILED"
)

// Payment correlates 1:1 with at most one entry via (user_id, contest_id).
// GatewayOrderID is the external reference and the idempotency key for
// capture notifications; it is unique and immutable once assigned.
type Payment struct {
	ID               string        `db:"id" json:"id"`
	UserID           string        `db:"user_id" json:"user_id"`
	ContestID        string        `db:"contest_id" json:"contest_id"`
	Amount           int64         `db:"amount" json:"amount"`
	Currency         string        `db:"currency" json:"currency"`
	GatewayOrderID   string        `db:"gateway_order_id" json:"gateway_order_id"`
	GatewayCaptureID string        `db:"gateway_capture_id" json:"gateway_capture_id,omitempty"`
	Status           PaymentStatus `db:"status" json:"status"`
	FailureReason    string        `db:"failure_reason" json:"failure_reason,omitempty"`
	RefundStatus     RefundStatus  `db:"refund_status" json:"refund_status"`
	RefundedAt       *time.Time    `db:"refunded_at" json:"refunded_at,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the payment has reached a final charge state.
func (p *Payment) Terminal() bool {
	return p.Status != PaymentStatusPending
}
