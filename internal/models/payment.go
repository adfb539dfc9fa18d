package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownPaymentStatus is returned when a string does not name any payment status.
	ErrUnknownPaymentStatus = errors.New("unknown payment status")
	// ErrUnknownPaymentMethod is returned when a string does not name any payment method.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
)

// PaymentStatus is the settlement state of a payment. A payment starts as
// PENDING and transitions exactly once to one of the terminal states.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// ParsePaymentStatus converts a stored string into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	switch PaymentStatus(value) {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return PaymentStatus(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPaymentStatus, value)
	}
}

// Terminal reports whether the status ends the payment lifecycle.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentRefunded
}

// PaymentMethod is the way a payment is made. The set is unordered.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodCard     PaymentMethod = "CARD"
	MethodTransfer PaymentMethod = "TRANSFER"
)

// ParsePaymentMethod converts a stored string into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	switch PaymentMethod(value) {
	case MethodCash, MethodCard, MethodTransfer:
		return PaymentMethod(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, value)
	}
}

// Payment represents a payment intent of a client and its settlement state.
type Payment struct {
	ID         int             `json:"id"`          // ID is the internal payment identifier.
	ClientCode int             `json:"client_code"` // ClientCode references the paying client's code.
	Amount     decimal.Decimal `json:"amount"`      // Amount is the payment amount in som; never zero.
	Method     PaymentMethod   `json:"method"`      // Method is how the payment is made.
	Status     PaymentStatus   `json:"status"`      // Status is the settlement state.
	PaidAt     *time.Time      `json:"paid_at"`     // PaidAt is set when the payment reaches a terminal state.
	CreatedAt  time.Time       `json:"created_at"`  // CreatedAt is the payment intent timestamp.
}
