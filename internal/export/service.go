package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MaxeeTig/creditstory/internal/entity"
	"github.com/MaxeeTig/creditstory/internal/repository"
)

// columns is the flat export layout: one row per loan record joined with
// its span's page number. Absent values serialize as empty cells.
var columns = []string{
	"id", "span_id", "page_number", "bank_name", "deal_date",
	"deal_type", "loan_type", "card_usage", "loan_amount",
	"loan_currency", "termination_date", "loan_status", "extracted_at",
}

// Service produces tabular exports of stored loan records.
type Service struct {
	loans  repository.LoanRepository
	logger *slog.Logger
}

func NewService(loans repository.LoanRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{loans: loans, logger: logger}
}

// WriteCSV writes all loan records as CSV and returns the row count.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	start := time.Now()

	recs, err := s.loans.ListWithPages(ctx)
	if err != nil {
		return 0, fmt.Errorf("query loans: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for _, rec := range recs {
		if err := cw.Write(rowValues(rec)); err != nil {
			return 0, fmt.Errorf("write loan %d: %w", rec.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}

	s.logger.Info("export.csv.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return len(recs), nil
}

// ExportLoansXLSX returns an XLSX workbook (as bytes) with the same rows
// and column order as the CSV export.
func (s *Service) ExportLoansXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	recs, err := s.loans.ListWithPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Loans"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for rowIdx, rec := range recs {
		for colIdx, v := range rowValues(rec) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "D", "D", 40) // bank name
	_ = f.SetColWidth(sheet, "E", "G", 16)
	_ = f.SetColWidth(sheet, "I", "K", 14)
	_ = f.SetColWidth(sheet, "M", "M", 22) // extraction timestamp

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func rowValues(rec *entity.LoanExportRow) []string {
	return []string{
		strconv.FormatInt(rec.ID, 10),
		strconv.FormatInt(rec.SpanID, 10),
		strconv.Itoa(rec.PageNumber),
		rec.BankName,
		dateString(rec.DealDate),
		strOrEmpty(rec.DealType),
		strOrEmpty(rec.LoanType),
		boolString(rec.CardUsage),
		amountString(rec),
		strOrEmpty(rec.LoanCurrency),
		dateString(rec.TerminationDate),
		string(rec.LoanStatus),
		rec.ExtractedAt.UTC().Format(time.RFC3339),
	}
}

func dateString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func boolString(p *bool) string {
	if p == nil {
		return ""
	}
	return strconv.FormatBool(*p)
}

func amountString(rec *entity.LoanExportRow) string {
	if rec.LoanAmount == nil {
		return ""
	}
	return rec.LoanAmount.String()
}
