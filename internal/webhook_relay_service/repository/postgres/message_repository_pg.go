package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/domain"
)

// Querier is the subset of *pgxpool.Pool used by the repository; pgxmock satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const createMessagesTable = `
	CREATE TABLE IF NOT EXISTS whatsapp_messages (
		id           UUID PRIMARY KEY,
		phone_number TEXT NOT NULL,
		text_content TEXT NOT NULL,
		stored_at    TIMESTAMPTZ NOT NULL
	)
`

const insertMessage = `
	INSERT INTO whatsapp_messages (id, phone_number, text_content, stored_at)
	VALUES ($1, $2, $3, $4)
`

type PgMessageRepository struct {
	db     Querier
	logger *slog.Logger
	now    func() time.Time
}

// NewPgMessageRepository creates a PostgreSQL implementation of MessageRepository.
func NewPgMessageRepository(db Querier, logger *slog.Logger) *PgMessageRepository {
	return &PgMessageRepository{
		db:     db,
		logger: logger.With("component", "message_repository_pg"),
		now:    time.Now,
	}
}

// EnsureSchema creates the whatsapp_messages table when it does not exist yet.
func EnsureSchema(ctx context.Context, db Querier) error {
	if _, err := db.Exec(ctx, createMessagesTable); err != nil {
		return fmt.Errorf("create whatsapp_messages table: %w", err)
	}
	return nil
}

// Create inserts one row into whatsapp_messages and returns its UUID.
func (r *PgMessageRepository) Create(ctx context.Context, phoneNumber string, text string) (string, error) {
	record := domain.NewStoredMessage(phoneNumber, text, r.now())
	record.ID = uuid.NewString()

	tag, err := r.db.Exec(ctx, insertMessage, record.ID, record.PhoneNumber, record.Text, record.Timestamp)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting message row", "error", err, "id", record.ID)
		return "", fmt.Errorf("%w: insert message: %w", domain.ErrStorageFailure, err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.ErrorContext(ctx, "Insert affected no rows", "id", record.ID)
		return "", fmt.Errorf("%w: insert message: no rows affected", domain.ErrStorageFailure)
	}

	r.logger.DebugContext(ctx, "Message stored", "id", record.ID, "phone_number", phoneNumber)
	return record.ID, nil
}
