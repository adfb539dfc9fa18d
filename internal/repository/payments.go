package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tulparexpress/tulpar-bot/internal/models"
)

var (
	// ErrPaymentNotFound is returned when no payment matches the requested ID.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrAlreadySettled is returned when a settled payment receives a conflicting terminal state.
	ErrAlreadySettled = errors.New("payment is already settled")
	// ErrZeroAmount is returned when a payment is created with a zero amount.
	ErrZeroAmount = errors.New("payment amount must not be zero")
)

// CreatePayment records a payment intent of an existing client. The payment
// starts as PENDING and settles later exactly once.
func (r *Repository) CreatePayment(
	ctx context.Context,
	clientCode int,
	amount decimal.Decimal,
	method models.PaymentMethod,
) (models.Payment, error) {
	if amount.IsZero() {
		return models.Payment{}, ErrZeroAmount
	}
	if _, err := models.ParsePaymentMethod(string(method)); err != nil {
		return models.Payment{}, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return models.Payment{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // omitted because checking for errors will not affect the function

	var clientExists bool
	err = tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM clients WHERE code = $1)", clientCode).Scan(&clientExists)
	if err != nil {
		return models.Payment{}, fmt.Errorf("failed to check client existence: %w", err)
	}
	if !clientExists {
		return models.Payment{}, ErrClientNotFound
	}

	payment := models.Payment{
		ClientCode: clientCode,
		Amount:     amount,
		Method:     method,
		Status:     models.PaymentPending,
	}
	err = tx.QueryRow(
		ctx,
		`INSERT INTO payments (client_code, amount, payment_method, status)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		clientCode, amount, string(method), string(models.PaymentPending),
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return models.Payment{}, fmt.Errorf("failed to insert payment: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Payment{}, fmt.Errorf("failed to commit payment intent: %w", err)
	}

	return payment, nil
}

// SettlePayment moves a PENDING payment to PAID or REFUNDED and stamps the
// settlement time. Repeating the same terminal request is a no-op; asking for
// the other terminal state after settlement fails with ErrAlreadySettled.
// The payment row is locked so concurrent settlements serialize.
func (r *Repository) SettlePayment(ctx context.Context, paymentID int, target models.PaymentStatus) error {
	if !target.Terminal() {
		return fmt.Errorf("%w: payment may only settle to PAID or REFUNDED, got %q", ErrInvalidTransition, target)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // omitted because checking for errors will not affect the function

	var rawStatus string
	err = tx.QueryRow(ctx, "SELECT status FROM payments WHERE id = $1 FOR UPDATE", paymentID).Scan(&rawStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("failed to lock payment row: %w", err)
	}

	current, err := models.ParsePaymentStatus(rawStatus)
	if err != nil {
		return fmt.Errorf("failed to parse stored status: %w", err)
	}

	if current.Terminal() {
		if current == target {
			return nil
		}
		return fmt.Errorf("%w: %s, refusing %s", ErrAlreadySettled, current, target)
	}

	_, err = tx.Exec(
		ctx, "UPDATE payments SET status = $2, paid_at = NOW() WHERE id = $1", paymentID, string(target),
	)
	if err != nil {
		return fmt.Errorf("failed to settle payment: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}

	return nil
}

// GetPaymentByID retrieves a single payment.
func (r *Repository) GetPaymentByID(ctx context.Context, paymentID int) (models.Payment, error) {
	var payment models.Payment
	var rawStatus, rawMethod string

	err := r.db.QueryRow(
		ctx,
		"SELECT id, client_code, amount, payment_method, status, paid_at, created_at FROM payments WHERE id = $1",
		paymentID,
	).Scan(
		&payment.ID, &payment.ClientCode, &payment.Amount, &rawMethod,
		&rawStatus, &payment.PaidAt, &payment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Payment{}, ErrPaymentNotFound
		}
		return models.Payment{}, fmt.Errorf("failed to get payment data: %w", err)
	}

	payment.Method, err = models.ParsePaymentMethod(rawMethod)
	if err != nil {
		return models.Payment{}, fmt.Errorf("failed to parse stored method: %w", err)
	}
	payment.Status, err = models.ParsePaymentStatus(rawStatus)
	if err != nil {
		return models.Payment{}, fmt.Errorf("failed to parse stored status: %w", err)
	}

	return payment, nil
}

// GetClientBalance returns settled payments minus invoiced parcel amounts for
// a client. A negative value means the client still owes money.
func (r *Repository) GetClientBalance(ctx context.Context, clientCode int) (decimal.Decimal, error) {
	var balance decimal.Decimal

	err := r.db.QueryRow(ctx, GetClientBalanceSQL, clientCode).Scan(&balance)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to query client balance: %w", err)
	}

	return balance, nil
}
