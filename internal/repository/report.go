package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/colsp-platform/colsp/internal/domain"
	"github.com/colsp-platform/colsp/internal/pagination"
	"github.com/colsp-platform/colsp/internal/service"
)

// ReportRepository handles persistence of reports.
type ReportRepository struct {
	db dbtx
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: pool}
}

func (r *ReportRepository) Create(ctx context.Context, rep *domain.Report) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO reports
			(id, author_id, type, category, title, slug, description, attachment_key, ai_summary, sentiment, status, created_at, updated_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rep.ID, rep.AuthorID, rep.Type, rep.Category, rep.Title, rep.Slug, rep.Description,
		nullableString(rep.AttachmentKey), nullableString(rep.AISummary), nullableString(rep.Sentiment),
		rep.Status, rep.CreatedAt, rep.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrSlugAlreadyExists
	}
	return err
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, author_id, type, category, title, slug, description, attachment_key, ai_summary, sentiment, status, created_at, updated_at
		 FROM reports WHERE id = $1`,
		id,
	)
	return scanReport(row)
}

func (r *ReportRepository) GetBySlug(ctx context.Context, slug string) (*domain.Report, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, author_id, type, category, title, slug, description, attachment_key, ai_summary, sentiment, status, created_at, updated_at
		 FROM reports WHERE slug = $1`,
		slug,
	)
	return scanReport(row)
}

func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status domain.ReportStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE reports SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

// ListRecent pages through reports newest first using a (created_at, id)
// keyset cursor.
func (r *ReportRepository) ListRecent(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.ReportPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, author_id, type, category, title, slug, description, attachment_key, ai_summary, sentiment, status, created_at, updated_at
			 FROM reports
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, author_id, type, category, title, slug, description, attachment_key, ai_summary, sentiment, status, created_at, updated_at
			 FROM reports
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.ReportPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var rep domain.Report
	var attachmentKey, aiSummary, sentiment *string
	err := row.Scan(
		&rep.ID, &rep.AuthorID, &rep.Type, &rep.Category, &rep.Title, &rep.Slug, &rep.Description,
		&attachmentKey, &aiSummary, &sentiment, &rep.Status, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReportNotFound
		}
		return nil, err
	}
	if attachmentKey != nil {
		rep.AttachmentKey = *attachmentKey
	}
	if aiSummary != nil {
		rep.AISummary = *aiSummary
	}
	if sentiment != nil {
		rep.Sentiment = *sentiment
	}
	return &rep, nil
}
