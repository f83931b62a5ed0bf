package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionPaymentCaptured    = "PAYMENT_CAPTURED"
	AuditActionPaymentFailed      = "PAYMENT_FAILED"
	AuditActionRefundRequested    = "REFUND_REQUESTED"
	AuditActionRefundResolved     = "REFUND_RESOLVED"
	AuditActionReservationExpired = "RESERVATION_EXPIRED"
	AuditActionInvariantViolation = "INVARIANT_VIOLATION"
)

// AuditLog represents an operator-facing audit trail record. Invariant
// violations are recorded here and never silently repaired.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Detail     []byte    `db:"detail" json:"detail,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
