package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colsp-platform/colsp/internal/domain"
)

// SessionRepository resolves bearer tokens to sessions.
type SessionRepository struct {
	db dbtx
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: pool}
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRow(ctx,
		`SELECT token, user_id, is_guest, created_at, expires_at
		 FROM sessions WHERE token = $1`,
		token,
	).Scan(&s.Token, &s.UserID, &s.IsGuest, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (token, user_id, is_guest, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.Token, s.UserID, s.IsGuest, s.CreatedAt, s.ExpiresAt,
	)
	return err
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
