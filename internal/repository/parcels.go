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
	// ErrParcelNotFound is returned when no parcel matches the requested tracking code.
	ErrParcelNotFound = errors.New("parcel not found")
	// ErrDuplicateTracking is returned when the tracking code is already registered.
	ErrDuplicateTracking = errors.New("this tracking code is already registered")
	// ErrInvalidTransition is returned when a status change is not the next stage in order.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNegativeAmount is returned when a weight or amount is below zero.
	ErrNegativeAmount = errors.New("weight and amounts must not be negative")
)

// CreateParcel registers a new parcel for an existing client. The parcel
// always starts in CHINA_WAREHOUSE; no lifecycle date is set yet.
func (r *Repository) CreateParcel(
	ctx context.Context,
	clientCode int,
	tracking string,
	weightKg, amountUSD, amountSom decimal.Decimal,
) (models.Parcel, error) {
	if weightKg.IsNegative() || amountUSD.IsNegative() || amountSom.IsNegative() {
		return models.Parcel{}, ErrNegativeAmount
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return models.Parcel{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // omitted because checking for errors will not affect the function

	var clientExists bool
	err = tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM clients WHERE code = $1)", clientCode).Scan(&clientExists)
	if err != nil {
		return models.Parcel{}, fmt.Errorf("failed to check client existence: %w", err)
	}
	if !clientExists {
		return models.Parcel{}, ErrClientNotFound
	}

	var trackingTaken bool
	err = tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM parcels WHERE tracking = $1)", tracking).Scan(&trackingTaken)
	if err != nil {
		return models.Parcel{}, fmt.Errorf("failed to check tracking uniqueness: %w", err)
	}
	if trackingTaken {
		return models.Parcel{}, ErrDuplicateTracking
	}

	parcel := models.Parcel{
		ClientCode: clientCode,
		Tracking:   tracking,
		Status:     models.StatusChinaWarehouse,
		WeightKg:   weightKg,
		AmountUSD:  amountUSD,
		AmountSom:  amountSom,
	}
	err = tx.QueryRow(
		ctx,
		`INSERT INTO parcels (client_code, tracking, status, weight_kg, amount_usd, amount_som)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		clientCode, tracking, string(models.StatusChinaWarehouse), weightKg, amountUSD, amountSom,
	).Scan(&parcel.ID, &parcel.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Parcel{}, ErrDuplicateTracking
		}
		return models.Parcel{}, fmt.Errorf("failed to insert parcel: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return models.Parcel{}, ErrDuplicateTracking
		}
		return models.Parcel{}, fmt.Errorf("failed to commit parcel registration: %w", err)
	}

	return parcel, nil
}

// AdvanceParcelStatus moves a parcel to the given stage. Only the exact next
// stage in lifecycle order is accepted; anything else fails with
// ErrInvalidTransition. Entering a stage that carries a date stamps that date
// unless it is already set. The parcel row is locked for the duration of the
// transition, so concurrent advances on the same tracking code serialize and
// the second caller revalidates against the committed state.
func (r *Repository) AdvanceParcelStatus(
	ctx context.Context,
	tracking string,
	target models.ParcelStatus,
) (models.Parcel, error) {
	if !target.Valid() {
		return models.Parcel{}, fmt.Errorf("%w: %q", models.ErrUnknownStatus, target)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return models.Parcel{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // omitted because checking for errors will not affect the function

	var rawStatus string
	err = tx.QueryRow(ctx, SelectParcelForUpdateSQL, tracking).Scan(&rawStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Parcel{}, ErrParcelNotFound
		}
		return models.Parcel{}, fmt.Errorf("failed to lock parcel row: %w", err)
	}

	current, err := models.ParseParcelStatus(rawStatus)
	if err != nil {
		return models.Parcel{}, fmt.Errorf("failed to parse stored status: %w", err)
	}

	if !current.CanAdvanceTo(target) {
		return models.Parcel{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}

	query := AdvanceParcelSQL
	if stamp := target.StampColumn(); stamp != "" {
		query = fmt.Sprintf(AdvanceParcelStampSQL, stamp)
	}

	parcel, err := scanParcel(tx.QueryRow(ctx, query, tracking, string(target)))
	if err != nil {
		return models.Parcel{}, fmt.Errorf("failed to advance parcel status: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Parcel{}, fmt.Errorf("failed to commit status transition: %w", err)
	}

	return parcel, nil
}

// GetParcelByTracking retrieves a single parcel by its tracking code.
func (r *Repository) GetParcelByTracking(ctx context.Context, tracking string) (models.Parcel, error) {
	row := r.db.QueryRow(
		ctx, "SELECT "+parcelColumns+" FROM parcels WHERE tracking = $1", tracking,
	)

	parcel, err := scanParcel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Parcel{}, ErrParcelNotFound
		}
		return models.Parcel{}, fmt.Errorf("failed to get parcel data: %w", err)
	}

	return parcel, nil
}

// GetParcelsByClient returns all parcels of a client, newest first.
func (r *Repository) GetParcelsByClient(ctx context.Context, clientCode int) ([]models.Parcel, error) {
	rows, err := r.db.Query(
		ctx, "SELECT "+parcelColumns+" FROM parcels WHERE client_code = $1 ORDER BY created_at DESC", clientCode,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query client parcels: %w", err)
	}

	return collectParcels(rows)
}

// GetParcelsByStatus returns all parcels sitting in the given stage, oldest
// first, for operational dashboards.
func (r *Repository) GetParcelsByStatus(ctx context.Context, status models.ParcelStatus) ([]models.Parcel, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownStatus, status)
	}

	rows, err := r.db.Query(
		ctx, "SELECT "+parcelColumns+" FROM parcels WHERE status = $1 ORDER BY created_at", string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query parcels by status: %w", err)
	}

	return collectParcels(rows)
}

func scanParcel(row pgx.Row) (models.Parcel, error) {
	var parcel models.Parcel
	var rawStatus string

	err := row.Scan(
		&parcel.ID, &parcel.ClientCode, &parcel.Tracking, &rawStatus,
		&parcel.WeightKg, &parcel.AmountUSD, &parcel.AmountSom,
		&parcel.DateChina, &parcel.DateBishkek, &parcel.DateDelivered, &parcel.CreatedAt,
	)
	if err != nil {
		return models.Parcel{}, err
	}

	parcel.Status, err = models.ParseParcelStatus(rawStatus)
	if err != nil {
		return models.Parcel{}, fmt.Errorf("failed to parse stored status: %w", err)
	}

	return parcel, nil
}

func collectParcels(rows pgx.Rows) ([]models.Parcel, error) {
	defer rows.Close()

	var parcels []models.Parcel
	for rows.Next() {
		parcel, err := scanParcel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parcel row: %w", err)
		}
		parcels = append(parcels, parcel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return parcels, nil
}
