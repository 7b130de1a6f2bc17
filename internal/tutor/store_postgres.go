package tutor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultState = "chatting"
	dbTimeout    = 5 * time.Second
)

// PostgresStore is a PostgreSQL-backed ConversationStore implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed conversation store.
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

	state := conv.State
	if state == "" {
		state = defaultState
	}
	startedAt := conv.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	id := uuid.NewString()
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, user_id, subtopic_id, state, started_at)
		 VALUES ($1::uuid, $2, $3, $4, $5)`,
		id,
		conv.UserID,
		nullIfEmpty(conv.SubtopicID),
		state,
		startedAt,
	); err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}

	for _, msg := range conv.Messages {
		if err := s.AddMessage(ctx, id, msg); err != nil {
			return "", fmt.Errorf("save initial messages: %w", err)
		}
	}
	return id, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	conv, err := s.getConversationByQuery(ctx,
		`SELECT id::text, user_id, subtopic_id, state, summary, compacted_at, started_at, ended_at
		 FROM conversations
		 WHERE id = $1::uuid`,
		id,
	)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT role, content, model, input_tokens, output_tokens, created_at
		 FROM messages
		 WHERE conversation_id = $1::uuid
		 ORDER BY created_at ASC, id ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg StoredMessage
		var model *string
		var inputTokens, outputTokens *int
		if err := rows.Scan(&msg.Role, &msg.Content, &model, &inputTokens, &outputTokens, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if model != nil {
			msg.Model = *model
		}
		if inputTokens != nil {
			msg.InputTokens = *inputTokens
		}
		if outputTokens != nil {
			msg.OutputTokens = *outputTokens
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return conv, nil
}

func (s *PostgresStore) GetActiveConversation(ctx context.Context, userID, subtopicID string) (*Conversation, bool) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id::text
		 FROM conversations
		 WHERE user_id = $1
		   AND subtopic_id IS NOT DISTINCT FROM $2
		   AND ended_at IS NULL
		 ORDER BY started_at DESC
		 LIMIT 1`,
		userID,
		nullIfEmpty(subtopicID),
	).Scan(&id)
	if err != nil {
		return nil, false
	}

	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, false
	}
	return conv, true
}

func (s *PostgresStore) AddMessage(ctx context.Context, conversationID string, msg StoredMessage) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if msg.Role == "" {
		return fmt.Errorf("message role is required")
	}
	if msg.Content == "" {
		return fmt.Errorf("message content is required")
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO messages (conversation_id, role, content, model, input_tokens, output_tokens, created_at)
		 SELECT c.id, $2, $3, $4, $5, $6, $7
		 FROM conversations c
		 WHERE c.id = $1::uuid`,
		conversationID,
		msg.Role,
		msg.Content,
		nullIfEmpty(msg.Model),
		nullIfZero(msg.InputTokens),
		nullIfZero(msg.OutputTokens),
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

func (s *PostgresStore) SetSummary(ctx context.Context, conversationID string, summary string, compactedAt int) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE conversations
		 SET summary = $2, compacted_at = $3
		 WHERE id = $1::uuid`,
		conversationID,
		summary,
		compactedAt,
	)
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
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

func (s *PostgresStore) getConversationByQuery(ctx context.Context, query string, args ...any) (*Conversation, error) {
	conv := &Conversation{}
	var subtopicID *string

	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&conv.ID,
		&conv.UserID,
		&subtopicID,
		&conv.State,
		&conv.Summary,
		&conv.CompactedAt,
		&conv.StartedAt,
		&conv.EndedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", ErrConversationNotFound, args)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if subtopicID != nil {
		conv.SubtopicID = *subtopicID
	}
	conv.Messages = []StoredMessage{}
	return conv, nil
}

func nullIfZero(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
