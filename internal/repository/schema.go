package repository

import (
	"context"
	"fmt"
)

// schemaStatements creates the store tables and indexes. Every statement uses
// IF NOT EXISTS so that reapplying the schema against an already-provisioned
// database is a no-op.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id SERIAL PRIMARY KEY,
		chat_id BIGINT UNIQUE NOT NULL,
		code INTEGER UNIQUE NOT NULL,
		full_name VARCHAR(255) NOT NULL,
		phone VARCHAR(50) NOT NULL,
		reg_date TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clients_phone ON clients(phone)`,
	`CREATE TABLE IF NOT EXISTS parcels (
		id SERIAL PRIMARY KEY,
		client_code INTEGER NOT NULL REFERENCES clients(code),
		tracking VARCHAR(100) UNIQUE NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'CHINA_WAREHOUSE',
		weight_kg NUMERIC(10,2) NOT NULL DEFAULT 0,
		amount_usd NUMERIC(10,2) NOT NULL DEFAULT 0,
		amount_som NUMERIC(10,2) NOT NULL DEFAULT 0,
		date_china TIMESTAMP,
		date_bishkek TIMESTAMP,
		date_delivered TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_parcels_client_code ON parcels(client_code)`,
	`CREATE INDEX IF NOT EXISTS idx_parcels_status ON parcels(status)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id SERIAL PRIMARY KEY,
		client_code INTEGER NOT NULL REFERENCES clients(code),
		amount NUMERIC(10,2) NOT NULL,
		payment_method VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
		paid_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_client_code ON payments(client_code)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status)`,
	`CREATE TABLE IF NOT EXISTS code_counter (
		id SERIAL PRIMARY KEY,
		last_number INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key VARCHAR(100) PRIMARY KEY,
		value VARCHAR(255) NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`,
}

// SeedCounterSQL seeds the client-code counter with the configured offset.
// It inserts only when the table is empty, so repeated initialization never
// resets an allocator that has already issued codes.
const SeedCounterSQL = `INSERT INTO code_counter (last_number) SELECT $1 WHERE NOT EXISTS (SELECT 1 FROM code_counter)`

// SeedRateSQL installs the default USD-to-som rate without touching a value
// an administrator may have set already.
const SeedRateSQL = `INSERT INTO settings (key, value) VALUES ('usd_to_som', $1) ON CONFLICT (key) DO NOTHING`

// InitSchema provisions the store tables, indexes, and seed rows.
// It is idempotent: running it against an existing store changes nothing.
func (r *Repository) InitSchema(ctx context.Context, codeOffset int, defaultRate string) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	if _, err := r.db.Exec(ctx, SeedCounterSQL, codeOffset); err != nil {
		return fmt.Errorf("failed to seed code counter: %w", err)
	}

	if _, err := r.db.Exec(ctx, SeedRateSQL, defaultRate); err != nil {
		return fmt.Errorf("failed to seed default rate: %w", err)
	}

	return nil
}
