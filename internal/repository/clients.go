package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tulparexpress/tulpar-bot/internal/models"
)

var (
	// ErrClientNotFound is returned when no client matches the requested code, chat ID, or phone.
	ErrClientNotFound = errors.New("client not found")
	// ErrDuplicateChatID is returned when the chat ID is already registered to a client.
	ErrDuplicateChatID = errors.New("this chat ID is already registered")
)

// CreateClient registers a new client. It checks the chat ID is not taken,
// draws the next code from the allocator, and inserts the record, all inside
// one transaction: on any failure nothing is persisted and no code escapes.
func (r *Repository) CreateClient(ctx context.Context, chatID int64, fullName, phone string) (models.Client, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return models.Client{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // omitted because checking for errors will not affect the function

	var exists bool
	err = tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM clients WHERE chat_id = $1)", chatID).Scan(&exists)
	if err != nil {
		return models.Client{}, fmt.Errorf("failed to check chat ID uniqueness: %w", err)
	}
	if exists {
		return models.Client{}, ErrDuplicateChatID
	}

	client := models.Client{ChatID: chatID, FullName: fullName, Phone: phone}
	err = tx.QueryRow(ctx, AllocateCodeSQL).Scan(&client.Code)
	if err != nil {
		return models.Client{}, fmt.Errorf("failed to allocate client code: %w", err)
	}

	err = tx.QueryRow(
		ctx,
		"INSERT INTO clients (chat_id, code, full_name, phone) VALUES ($1, $2, $3, $4) RETURNING reg_date",
		chatID, client.Code, fullName, phone,
	).Scan(&client.RegDate)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Client{}, ErrDuplicateChatID
		}
		return models.Client{}, fmt.Errorf("failed to insert client: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return models.Client{}, ErrDuplicateChatID
		}
		return models.Client{}, fmt.Errorf("failed to commit client registration: %w", err)
	}

	return client, nil
}

// GetClientByCode retrieves a client by their sequential code.
func (r *Repository) GetClientByCode(ctx context.Context, code int) (models.Client, error) {
	row := r.db.QueryRow(
		ctx, "SELECT chat_id, code, full_name, phone, reg_date FROM clients WHERE code = $1", code,
	)
	return scanClient(row)
}

// GetClientByChatID retrieves a client by their Telegram chat ID.
func (r *Repository) GetClientByChatID(ctx context.Context, chatID int64) (models.Client, error) {
	row := r.db.QueryRow(
		ctx, "SELECT chat_id, code, full_name, phone, reg_date FROM clients WHERE chat_id = $1", chatID,
	)
	return scanClient(row)
}

// GetClientByPhone retrieves a client by phone number, matching either the
// exact value or the trailing digits an operator typically types in.
func (r *Repository) GetClientByPhone(ctx context.Context, phone string) (models.Client, error) {
	row := r.db.QueryRow(
		ctx,
		"SELECT chat_id, code, full_name, phone, reg_date FROM clients WHERE phone = $1 OR phone LIKE $2",
		phone, "%"+phone,
	)
	return scanClient(row)
}

// ListClients returns all registered clients, newest first.
func (r *Repository) ListClients(ctx context.Context) ([]models.Client, error) {
	rows, err := r.db.Query(
		ctx, "SELECT chat_id, code, full_name, phone, reg_date FROM clients ORDER BY reg_date DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var client models.Client
		if errScan := rows.Scan(
			&client.ChatID, &client.Code, &client.FullName, &client.Phone, &client.RegDate,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan client row: %w", errScan)
		}
		clients = append(clients, client)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return clients, nil
}

// UpdateClientContact corrects the full name and phone of an existing client.
// The code and chat ID are immutable after registration.
func (r *Repository) UpdateClientContact(ctx context.Context, code int, fullName, phone string) error {
	cmdTag, err := r.db.Exec(
		ctx, "UPDATE clients SET full_name = $2, phone = $3 WHERE code = $1", code, fullName, phone,
	)
	if err != nil {
		return fmt.Errorf("failed to update client %d: %w", code, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrClientNotFound
	}

	return nil
}

func scanClient(row pgx.Row) (models.Client, error) {
	var client models.Client

	err := row.Scan(&client.ChatID, &client.Code, &client.FullName, &client.Phone, &client.RegDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Client{}, ErrClientNotFound
		}
		return models.Client{}, fmt.Errorf("failed to get client data: %w", err)
	}

	return client, nil
}
