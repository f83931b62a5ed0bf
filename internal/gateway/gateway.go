// Package gateway abstracts the external payment provider. The reconciliation
// engine only ever needs two capabilities: create a charge and capture it.
package gateway

import (
	"context"
	"errors"
	"fmt"
)

// ChargeRequest describes a charge to be created with the provider.
type ChargeRequest struct {
	Amount      int64
	Currency    string
	Description string
}

// Gateway is the abstract payment provider capability.
type Gateway interface {
	// CreateCharge registers a charge and returns the provider's order
	// reference.
	CreateCharge(ctx context.Context, req ChargeRequest) (orderID string, err error)
	// CaptureCharge finalises a previously created charge. The returned
	// capture ID identifies the provider-side transaction.
	CaptureCharge(ctx context.Context, orderID, token string) (captureID string, err error)
}

// Error describes a gateway failure. Transient errors (timeouts, 5xx) are
// retryable by the caller; permanent ones (declined charge) terminate the
// attempt.
type Error struct {
	Op        string
	Reason    string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable gateway failure.
func IsTransient(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Transient
	}
	return false
}
