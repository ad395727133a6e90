package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MaxeeTig/creditstory/internal/entity"
)

// dateLayout is the ISO calendar-date storage format for loan dates.
const dateLayout = "2006-01-02"

// LoanRepository persists normalized loan records.
type LoanRepository interface {
	// StoreForSpan inserts the record and marks its source span processed
	// in one transaction, keeping crash-safety at per-span granularity.
	StoreForSpan(ctx context.Context, rec *entity.LoanRecord) (int64, error)
	// ListWithPages returns every loan joined with its span's page number,
	// in insertion order.
	ListWithPages(ctx context.Context) ([]*entity.LoanExportRow, error)
	Recent(ctx context.Context, limit int) ([]*entity.LoanRecord, error)
}

type loanRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewLoanRepository(db *sql.DB, logger *slog.Logger) LoanRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &loanRepository{db: db, logger: logger}
}

func (r *loanRepository) StoreForSpan(ctx context.Context, rec *entity.LoanRecord) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin store loan: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	extractedAt := rec.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO loans (
			span_id, bank_name, deal_date, deal_type, loan_type,
			card_usage, loan_amount, loan_currency,
			termination_date, actual_termination_date, loan_status, extracted_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SpanID, rec.BankName,
		dateOrNil(rec.DealDate), rec.DealType, rec.LoanType,
		rec.CardUsage, decimalOrNil(rec.LoanAmount), rec.LoanCurrency,
		dateOrNil(rec.TerminationDate), dateOrNil(rec.ActualTerminationDate),
		string(rec.LoanStatus), extractedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		r.logger.Error("repository.loan.store_failed", "span_id", rec.SpanID, "error", err)
		return 0, fmt.Errorf("store loan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("loan insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE spans SET processed = 1, processing_error = NULL WHERE id = ?`,
		rec.SpanID); err != nil {
		return 0, fmt.Errorf("mark span %d processed: %w", rec.SpanID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit store loan: %w", err)
	}
	rec.ID = id
	return id, nil
}

func (r *loanRepository) ListWithPages(ctx context.Context) ([]*entity.LoanExportRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.span_id, l.bank_name, l.deal_date, l.deal_type, l.loan_type,
		       l.card_usage, l.loan_amount, l.loan_currency,
		       l.termination_date, l.actual_termination_date, l.loan_status, l.extracted_at,
		       s.page_number
		FROM loans l
		JOIN spans s ON l.span_id = s.id
		ORDER BY l.id`)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var out []*entity.LoanExportRow
	for rows.Next() {
		var row entity.LoanExportRow
		if err := scanLoan(rows, &row.LoanRecord, &row.PageNumber); err != nil {
			return nil, err
		}
		out = append(out, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}
	return out, nil
}

func (r *loanRepository) Recent(ctx context.Context, limit int) ([]*entity.LoanRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, span_id, bank_name, deal_date, deal_type, loan_type,
		       card_usage, loan_amount, loan_currency,
		       termination_date, actual_termination_date, loan_status, extracted_at
		FROM loans ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent loans: %w", err)
	}
	defer rows.Close()

	var out []*entity.LoanRecord
	for rows.Next() {
		var rec entity.LoanRecord
		if err := scanLoan(rows, &rec); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}
	return out, nil
}

// scanLoan scans one loans row; extra receives trailing joined columns.
func scanLoan(rows *sql.Rows, rec *entity.LoanRecord, extra ...any) error {
	var (
		dealDate, terminationDate, actualTerminationDate sql.NullString
		dealType, loanType, currency                     sql.NullString
		cardUsage                                        sql.NullBool
		amount                                           sql.NullString
		extractedAt                                      string
		status                                           string
	)
	dest := []any{
		&rec.ID, &rec.SpanID, &rec.BankName, &dealDate, &dealType, &loanType,
		&cardUsage, &amount, &currency,
		&terminationDate, &actualTerminationDate, &status, &extractedAt,
	}
	dest = append(dest, extra...)
	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("scan loan: %w", err)
	}

	rec.DealDate = parseStoredDate(dealDate)
	rec.TerminationDate = parseStoredDate(terminationDate)
	rec.ActualTerminationDate = parseStoredDate(actualTerminationDate)
	if dealType.Valid {
		rec.DealType = &dealType.String
	}
	if loanType.Valid {
		rec.LoanType = &loanType.String
	}
	if cardUsage.Valid {
		rec.CardUsage = &cardUsage.Bool
	}
	if amount.Valid {
		if d, err := decimal.NewFromString(amount.String); err == nil {
			rec.LoanAmount = &d
		}
	}
	if currency.Valid {
		rec.LoanCurrency = &currency.String
	}
	rec.LoanStatus = entity.LoanStatus(status)
	if t, err := time.Parse(timeLayout, extractedAt); err == nil {
		rec.ExtractedAt = t
	}
	return nil
}

func parseStoredDate(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(dateLayout, v.String)
	if err != nil {
		return nil
	}
	return &t
}

func dateOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(dateLayout)
}

func decimalOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
