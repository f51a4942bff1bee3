package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colsp-platform/colsp/internal/domain"
)

// foreignKeyViolationCode is raised when a reaction references a report
// that does not exist.
const foreignKeyViolationCode = "23503"

// ReactionRepository handles persistence of report reactions. The table
// carries a unique (user_id, report_id) constraint; Toggle runs inside a
// transaction so the read-then-write sequence cannot race with itself.
type ReactionRepository struct {
	pool *pgxpool.Pool
}

func NewReactionRepository(pool *pgxpool.Pool) *ReactionRepository {
	return &ReactionRepository{pool: pool}
}

// Toggle applies the one-reaction-per-user rule: an existing reaction of
// the same type is removed, a different type is replaced, otherwise the
// reaction is inserted.
func (r *ReactionRepository) Toggle(ctx context.Context, reaction *domain.Reaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existingType domain.ReactionType
	err = tx.QueryRow(ctx,
		`SELECT type FROM reactions WHERE user_id = $1 AND report_id = $2 FOR UPDATE`,
		reaction.UserID, reaction.ReportID,
	).Scan(&existingType)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = tx.Exec(ctx,
			`INSERT INTO reactions (user_id, report_id, type, created_at) VALUES ($1, $2, $3, $4)`,
			reaction.UserID, reaction.ReportID, reaction.Type, reaction.CreatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrReportNotFound
			}
			return err
		}
	case err != nil:
		return err
	case existingType == reaction.Type:
		_, err = tx.Exec(ctx,
			`DELETE FROM reactions WHERE user_id = $1 AND report_id = $2`,
			reaction.UserID, reaction.ReportID,
		)
		if err != nil {
			return err
		}
	default:
		_, err = tx.Exec(ctx,
			`UPDATE reactions SET type = $1, created_at = $2 WHERE user_id = $3 AND report_id = $4`,
			reaction.Type, reaction.CreatedAt, reaction.UserID, reaction.ReportID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// CountsByReport returns the number of reactions per type. Types with no
// reactions are absent from the map.
func (r *ReactionRepository) CountsByReport(ctx context.Context, reportID string) (map[domain.ReactionType]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT type, COUNT(*) FROM reactions WHERE report_id = $1 GROUP BY type`,
		reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ReactionType]int)
	for rows.Next() {
		var reactionType domain.ReactionType
		var count int
		if err := rows.Scan(&reactionType, &count); err != nil {
			return nil, err
		}
		counts[reactionType] = count
	}
	return counts, rows.Err()
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}
