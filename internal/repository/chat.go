package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colsp-platform/colsp/internal/domain"
)

// ChatRepository handles persistence of chat turns.
type ChatRepository struct {
	db dbtx
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: pool}
}

func (r *ChatRepository) Create(ctx context.Context, t *domain.ChatTurn) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_messages (id, user_id, user_message, assistant_response, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.UserID, t.UserMessage, t.AssistantResponse, t.Timestamp,
	)
	return err
}

// LastByUser returns the user's most recent turns ordered oldest-first,
// ready to render as a transcript.
func (r *ChatRepository) LastByUser(ctx context.Context, userID string, limit int) ([]*domain.ChatTurn, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, user_message, assistant_response, created_at
		 FROM (
			SELECT id, user_id, user_message, assistant_response, created_at
			FROM chat_messages
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		 ) recent
		 ORDER BY created_at ASC, id ASC`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*domain.ChatTurn
	for rows.Next() {
		var t domain.ChatTurn
		if err := rows.Scan(&t.ID, &t.UserID, &t.UserMessage, &t.AssistantResponse, &t.Timestamp); err != nil {
			return nil, err
		}
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}
