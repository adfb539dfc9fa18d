package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const rateKey = "usd_to_som"

// GetSetting returns the value stored under key, or fallback when unset.
func (r *Repository) GetSetting(ctx context.Context, key, fallback string) (string, error) {
	var value string

	err := r.db.QueryRow(ctx, "SELECT value FROM settings WHERE key = $1", key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fallback, nil
		}
		return "", fmt.Errorf("failed to get setting %q: %w", key, err)
	}

	return value, nil
}

// SetSetting stores a value under key, replacing any previous one.
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(
		ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set setting %q: %w", key, err)
	}

	return nil
}

// GetUSDRate returns the current USD-to-som exchange rate.
func (r *Repository) GetUSDRate(ctx context.Context) (decimal.Decimal, error) {
	raw, err := r.GetSetting(ctx, rateKey, "89.5")
	if err != nil {
		return decimal.Decimal{}, err
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse stored rate %q: %w", raw, err)
	}

	return rate, nil
}

// SetUSDRate stores a new USD-to-som exchange rate.
func (r *Repository) SetUSDRate(ctx context.Context, rate decimal.Decimal) error {
	return r.SetSetting(ctx, rateKey, rate.String())
}
