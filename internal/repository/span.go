package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/MaxeeTig/creditstory/internal/entity"
)

// timeLayout is the storage format for timestamps.
const timeLayout = time.RFC3339

// SpanRepository persists candidate spans and their processing state.
type SpanRepository interface {
	Store(ctx context.Context, span *entity.Span) (int64, error)
	Unprocessed(ctx context.Context) ([]*entity.Span, error)
	MarkProcessed(ctx context.Context, spanID int64, processingError *string) error
	Recent(ctx context.Context, limit int) ([]*entity.Span, error)
}

type spanRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSpanRepository(db *sql.DB, logger *slog.Logger) SpanRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &spanRepository{db: db, logger: logger}
}

func (r *spanRepository) Store(ctx context.Context, span *entity.Span) (int64, error) {
	extractedAt := span.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO spans (content, page_number, start_offset, end_offset, extracted_at)
		 VALUES (?, ?, ?, ?, ?)`,
		span.Content, span.PageNumber, span.StartOffset, span.EndOffset,
		extractedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		r.logger.Error("repository.span.store_failed", "page", span.PageNumber, "error", err)
		return 0, fmt.Errorf("store span: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("span insert id: %w", err)
	}
	span.ID = id
	return id, nil
}

// Unprocessed returns spans not yet attempted, in insertion order.
func (r *spanRepository) Unprocessed(ctx context.Context) ([]*entity.Span, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, content, page_number, start_offset, end_offset, extracted_at, processed, processing_error
		 FROM spans WHERE processed = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed spans: %w", err)
	}
	defer rows.Close()
	return scanSpans(rows)
}

// MarkProcessed records that a span was attempted, with the failure cause
// when the attempt produced no record. A marked span is never reprocessed.
func (r *spanRepository) MarkProcessed(ctx context.Context, spanID int64, processingError *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE spans SET processed = 1, processing_error = ? WHERE id = ?`,
		processingError, spanID)
	if err != nil {
		r.logger.Error("repository.span.mark_failed", "span_id", spanID, "error", err)
		return fmt.Errorf("mark span %d processed: %w", spanID, err)
	}
	return nil
}

func (r *spanRepository) Recent(ctx context.Context, limit int) ([]*entity.Span, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, content, page_number, start_offset, end_offset, extracted_at, processed, processing_error
		 FROM spans ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent spans: %w", err)
	}
	defer rows.Close()
	return scanSpans(rows)
}

func scanSpans(rows *sql.Rows) ([]*entity.Span, error) {
	var spans []*entity.Span
	for rows.Next() {
		var (
			s           entity.Span
			extractedAt string
			procErr     sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.Content, &s.PageNumber, &s.StartOffset, &s.EndOffset,
			&extractedAt, &s.Processed, &procErr); err != nil {
			return nil, fmt.Errorf("scan span: %w", err)
		}
		if t, err := time.Parse(timeLayout, extractedAt); err == nil {
			s.ExtractedAt = t
		}
		if procErr.Valid {
			s.ProcessingError = &procErr.String
		}
		spans = append(spans, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spans: %w", err)
	}
	return spans, nil
}

// CollectStats aggregates span/loan counts for end-of-run reporting.
func CollectStats(ctx context.Context, db *sql.DB) (*entity.StorageStats, error) {
	stats := &entity.StorageStats{}
	row := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM spans),
			(SELECT COUNT(*) FROM spans WHERE processed = 1),
			(SELECT COUNT(*) FROM spans WHERE processing_error IS NOT NULL),
			(SELECT COUNT(*) FROM loans)`)
	if err := row.Scan(&stats.TotalSpans, &stats.ProcessedSpans, &stats.ErrorSpans, &stats.TotalLoans); err != nil {
		return nil, fmt.Errorf("collect stats: %w", err)
	}
	if stats.TotalSpans > 0 {
		stats.SuccessRate = float64(stats.ProcessedSpans-stats.ErrorSpans) / float64(stats.TotalSpans)
	}
	return stats, nil
}
