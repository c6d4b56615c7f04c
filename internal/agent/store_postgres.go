package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/p-n-ai/tsea/internal/ai"
	"github.com/p-n-ai/tsea/internal/platform/database"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed ConversationStore implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed conversation store. The schema
// is created by database.Migrate.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateConversation(ctx context.Context, conv Conversation) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if conv.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}

	startedAt := conv.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	id := uuid.NewString()
	err := database.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversations (id, user_id, persona, started_at)
			 VALUES ($1::uuid, $2, $3, $4)`,
			id,
			conv.UserID,
			string(conv.Persona),
			startedAt,
		); err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		for _, msg := range conv.Messages {
			if err := insertMessage(ctx, tx, id, msg); err != nil {
				return fmt.Errorf("save initial messages: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}

	conv, err := s.getConversationByQuery(ctx,
		`SELECT id::text, user_id, persona, started_at, ended_at
		 FROM conversations
		 WHERE id = $1::uuid`,
		id,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	conv.Messages, err = s.messages(ctx, conv.ID, 0)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *PostgresStore) ActiveConversation(ctx context.Context, userID string, persona ai.Persona) (*Conversation, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	conv, err := s.active(ctx, userID, persona)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	conv.Messages, err = s.messages(ctx, conv.ID, 0)
	if err != nil {
		return nil, false, err
	}
	return conv, true, nil
}

func (s *PostgresStore) AddMessage(ctx context.Context, conversationID string, msg StoredMessage) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return insertMessage(ctx, s.pool, conversationID, msg)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertMessage(ctx context.Context, db execer, conversationID string, msg StoredMessage) error {
	if msg.Role == "" {
		return fmt.Errorf("message role is required")
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	cmd, err := db.Exec(ctx,
		`INSERT INTO messages (conversation_id, role, content, model, shape, created_at)
		 SELECT c.id, $2, $3, $4, $5, $6
		 FROM conversations c
		 WHERE c.id = $1::uuid`,
		conversationID,
		msg.Role,
		msg.Content,
		nullIfEmpty(msg.Model),
		nullIfEmpty(msg.Shape),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	return nil
}

func (s *PostgresStore) EndConversation(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE conversations
		 SET ended_at = NOW()
		 WHERE id = $1::uuid AND ended_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("end conversation: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, userID string, persona ai.Persona, limit int) ([]StoredMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	conv, err := s.active(ctx, userID, persona)
	if errors.Is(err, pgx.ErrNoRows) {
		return []StoredMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.messages(ctx, conv.ID, limit)
}

func (s *PostgresStore) active(ctx context.Context, userID string, persona ai.Persona) (*Conversation, error) {
	return s.getConversationByQuery(ctx,
		`SELECT id::text, user_id, persona, started_at, ended_at
		 FROM conversations
		 WHERE user_id = $1
		   AND persona = $2
		   AND ended_at IS NULL
		 ORDER BY started_at DESC
		 LIMIT 1`,
		userID,
		string(persona),
	)
}

// messages loads the newest limit messages oldest first; limit <= 0 loads all.
func (s *PostgresStore) messages(ctx context.Context, conversationID string, limit int) ([]StoredMessage, error) {
	query := `SELECT role, content, model, shape, created_at
		 FROM messages
		 WHERE conversation_id = $1::uuid
		 ORDER BY created_at DESC, id DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := []StoredMessage{}
	for rows.Next() {
		var msg StoredMessage
		var model, shape *string
		if err := rows.Scan(&msg.Role, &msg.Content, &model, &shape, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if model != nil {
			msg.Model = *model
		}
		if shape != nil {
			msg.Shape = *shape
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	slices.Reverse(msgs)
	return msgs, nil
}

func (s *PostgresStore) getConversationByQuery(ctx context.Context, query string, args ...any) (*Conversation, error) {
	conv := &Conversation{}
	var persona string
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&conv.ID,
		&conv.UserID,
		&persona,
		&conv.StartedAt,
		&conv.EndedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	conv.Persona = ai.Persona(persona)
	conv.Messages = []StoredMessage{}
	return conv, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
