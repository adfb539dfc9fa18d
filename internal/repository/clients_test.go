package repository_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tulparexpress/tulpar-bot/internal/repository"
)

const selectChatIDExists = `SELECT EXISTS \(SELECT 1 FROM clients WHERE chat_id = \$1\)`

const insertClient = `
	INSERT INTO clients (chat_id, code, full_name, phone) VALUES ($1, $2, $3, $4) RETURNING reg_date
`

const selectClientByCode = `SELECT chat_id, code, full_name, phone, reg_date FROM clients WHERE code = \$1`

const selectClientByChatID = `SELECT chat_id, code, full_name, phone, reg_date FROM clients WHERE chat_id = \$1`

var clientColumns = []string{"chat_id", "code", "full_name", "phone", "reg_date"}

func TestCreateClient(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	chatID := int64(12345)
	fullName := "Aibek Toktogulov"
	phone := "+996700112233"

	t.Run("error - failed to begin transaction", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectBegin().WillReturnError(assert.AnError)

		_, err = repo.CreateClient(ctx, chatID, fullName, phone)

		require.Error(t, err)
		require.ErrorContains(t, err, "failed to begin transaction")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - chat ID already registered", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery(selectChatIDExists).
			WithArgs(chatID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err = repo.CreateClient(ctx, chatID, fullName, phone)

		require.Error(t, err)
		require.ErrorIs(t, err, repository.ErrDuplicateChatID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - failed to allocate code", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery(selectChatIDExists).
			WithArgs(chatID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(regexp.QuoteMeta(repository.AllocateCodeSQL)).WillReturnError(assert.AnError)
		mock.ExpectRollback()

		_, err = repo.CreateClient(ctx, chatID, fullName, phone)

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to allocate client code")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - failed to insert client", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery(selectChatIDExists).
			WithArgs(chatID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(regexp.QuoteMeta(repository.AllocateCodeSQL)).
			WillReturnRows(pgxmock.NewRows([]string{"last_number"}).AddRow(5001))
		mock.ExpectQuery(regexp.QuoteMeta(insertClient)).
			WithArgs(chatID, 5001, fullName, phone).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		_, err = repo.CreateClient(ctx, chatID, fullName, phone)

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to insert client")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - concurrent registration loses the unique race", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		// The existence check passed, but another registration with the same
		// chat ID committed first; the constraint still maps to the sentinel.
		mock.ExpectBegin()
		mock.ExpectQuery(selectChatIDExists).
			WithArgs(chatID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(regexp.QuoteMeta(repository.AllocateCodeSQL)).
			WillReturnRows(pgxmock.NewRows([]string{"last_number"}).AddRow(5001))
		mock.ExpectQuery(regexp.QuoteMeta(insertClient)).
			WithArgs(chatID, 5001, fullName, phone).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "clients_chat_id_key"})
		mock.ExpectRollback()

		_, err = repo.CreateClient(ctx, chatID, fullName, phone)

		require.Error(t, err)
		require.ErrorIs(t, err, repository.ErrDuplicateChatID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - first client gets the code after the offset", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)
		regDate := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(selectChatIDExists).
			WithArgs(chatID).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(regexp.QuoteMeta(repository.AllocateCodeSQL)).
			WillReturnRows(pgxmock.NewRows([]string{"last_number"}).AddRow(5001))
		mock.ExpectQuery(regexp.QuoteMeta(insertClient)).
			WithArgs(chatID, 5001, fullName, phone).
			WillReturnRows(pgxmock.NewRows([]string{"reg_date"}).AddRow(regDate))
		mock.ExpectCommit()

		client, err := repo.CreateClient(ctx, chatID, fullName, phone)

		require.NoError(t, err)
		assert.Equal(t, 5001, client.Code)
		assert.Equal(t, "TE-5001", client.DisplayCode())
		assert.Equal(t, chatID, client.ChatID)
		assert.Equal(t, fullName, client.FullName)
		assert.Equal(t, regDate, client.RegDate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetClientByCode(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("error - client not found", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectQuery(selectClientByCode).
			WithArgs(5001).
			WillReturnRows(pgxmock.NewRows(clientColumns))

		_, err = repo.GetClientByCode(ctx, 5001)

		require.Error(t, err)
		require.ErrorIs(t, err, repository.ErrClientNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - failed to get client data", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectQuery(selectClientByCode).WithArgs(5001).WillReturnError(assert.AnError)

		_, err = repo.GetClientByCode(ctx, 5001)

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to get client data")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - get client", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectQuery(selectClientByCode).
			WithArgs(5001).
			WillReturnRows(
				pgxmock.NewRows(clientColumns).
					AddRow(int64(12345), 5001, "Aibek Toktogulov", "+996700112233", time.Now()),
			)

		client, err := repo.GetClientByCode(ctx, 5001)

		require.NoError(t, err)
		assert.Equal(t, int64(12345), client.ChatID)
		assert.Equal(t, "Aibek Toktogulov", client.FullName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetClientByChatID(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("error - client not found", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectQuery(selectClientByChatID).
			WithArgs(int64(404)).
			WillReturnRows(pgxmock.NewRows(clientColumns))

		_, err = repo.GetClientByChatID(ctx, 404)

		require.Error(t, err)
		require.ErrorIs(t, err, repository.ErrClientNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - get client", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectQuery(selectClientByChatID).
			WithArgs(int64(12345)).
			WillReturnRows(
				pgxmock.NewRows(clientColumns).
					AddRow(int64(12345), 5002, "Gulnara Osmonova", "+996555998877", time.Now()),
			)

		client, err := repo.GetClientByChatID(ctx, 12345)

		require.NoError(t, err)
		assert.Equal(t, 5002, client.Code)
		assert.Equal(t, "TE-5002", client.DisplayCode())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetClientByPhone(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("success - match by trailing digits", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectQuery(
			`SELECT chat_id, code, full_name, phone, reg_date FROM clients WHERE phone = \$1 OR phone LIKE \$2`,
		).
			WithArgs("0700112233", "%0700112233").
			WillReturnRows(
				pgxmock.NewRows(clientColumns).
					AddRow(int64(12345), 5001, "Aibek Toktogulov", "+996700112233", time.Now()),
			)

		client, err := repo.GetClientByPhone(ctx, "0700112233")

		require.NoError(t, err)
		assert.Equal(t, 5001, client.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListClients(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	listClients := `SELECT chat_id, code, full_name, phone, reg_date FROM clients ORDER BY reg_date DESC`

	t.Run("error - failed to query clients", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectQuery(listClients).WillReturnError(assert.AnError)

		_, err = repo.ListClients(ctx)

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to query clients")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - list clients", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectQuery(listClients).WillReturnRows(
			pgxmock.NewRows(clientColumns).
				AddRow(int64(2), 5002, "Gulnara Osmonova", "+996555998877", time.Now()).
				AddRow(int64(1), 5001, "Aibek Toktogulov", "+996700112233", time.Now()),
		)

		clients, err := repo.ListClients(ctx)

		require.NoError(t, err)
		require.Len(t, clients, 2)
		assert.Equal(t, 5002, clients[0].Code)
		assert.Equal(t, 5001, clients[1].Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateClientContact(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	updateClient := `UPDATE clients SET full_name = \$2, phone = \$3 WHERE code = \$1`

	t.Run("error - failed to update client", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectExec(updateClient).
			WithArgs(5001, "New Name", "+996700000000").
			WillReturnError(assert.AnError)

		err = repo.UpdateClientContact(ctx, 5001, "New Name", "+996700000000")

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - client not found", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectExec(updateClient).
			WithArgs(5404, "New Name", "+996700000000").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = repo.UpdateClientContact(ctx, 5404, "New Name", "+996700000000")

		require.Error(t, err)
		require.ErrorIs(t, err, repository.ErrClientNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - update contact", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock)

		mock.ExpectExec(updateClient).
			WithArgs(5001, "New Name", "+996700000000").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = repo.UpdateClientContact(ctx, 5001, "New Name", "+996700000000")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
