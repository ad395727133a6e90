package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/MaxeeTig/creditstory/internal/entity"
	"github.com/MaxeeTig/creditstory/internal/repository"
)

func seedLoans(t *testing.T) (*sql.DB, repository.LoanRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	spans := repository.NewSpanRepository(db, logger)
	loans := repository.NewLoanRepository(db, logger)
	ctx := context.Background()

	fullSpan, err := spans.Store(ctx, &entity.Span{PageNumber: 4, Content: "1. Банк А - Договор займа (кредита)"})
	require.NoError(t, err)
	sparseSpan, err := spans.Store(ctx, &entity.Span{PageNumber: 9, Content: "2. Банк Б - Микрокредит"})
	require.NoError(t, err)

	amount := decimal.RequireFromString("50000.00")
	currency := "RUB"
	dealType := "Иной заем"
	cardUsage := true
	dealDate := time.Date(2024, 5, 18, 0, 0, 0, 0, time.UTC)
	termination := time.Date(2029, 5, 18, 0, 0, 0, 0, time.UTC)
	_, err = loans.StoreForSpan(ctx, &entity.LoanRecord{
		SpanID:          fullSpan,
		BankName:        "Банк А",
		DealDate:        &dealDate,
		DealType:        &dealType,
		CardUsage:       &cardUsage,
		LoanAmount:      &amount,
		LoanCurrency:    &currency,
		TerminationDate: &termination,
		LoanStatus:      entity.LoanStatusActive,
	})
	require.NoError(t, err)

	_, err = loans.StoreForSpan(ctx, &entity.LoanRecord{
		SpanID:     sparseSpan,
		BankName:   "Банк Б",
		LoanStatus: entity.LoanStatusClosed,
	})
	require.NoError(t, err)

	return db, loans
}

func TestWriteCSV(t *testing.T) {
	_, loans := seedLoans(t)
	svc := NewService(loans, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var buf bytes.Buffer
	n, err := svc.WriteCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"id", "span_id", "page_number", "bank_name", "deal_date",
		"deal_type", "loan_type", "card_usage", "loan_amount",
		"loan_currency", "termination_date", "loan_status", "extracted_at",
	}, records[0])

	full := records[1]
	assert.Equal(t, "4", full[2])
	assert.Equal(t, "Банк А", full[3])
	assert.Equal(t, "2024-05-18", full[4])
	assert.Equal(t, "Иной заем", full[5])
	assert.Equal(t, "", full[6], "absent loan_type is an empty cell")
	assert.Equal(t, "true", full[7])
	assert.Equal(t, "50000.00", full[8])
	assert.Equal(t, "RUB", full[9])
	assert.Equal(t, "2029-05-18", full[10])
	assert.Equal(t, "Active", full[11])
	assert.NotEmpty(t, full[12])

	sparse := records[2]
	assert.Equal(t, "9", sparse[2])
	assert.Equal(t, "Банк Б", sparse[3])
	for _, idx := range []int{4, 5, 6, 7, 8, 9, 10} {
		assert.Equal(t, "", sparse[idx], "column %d must be empty", idx)
	}
	assert.Equal(t, "Closed", sparse[11])
}

func TestWriteCSVEmptyStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	svc := NewService(repository.NewLoanRepository(db, logger), logger)

	var buf bytes.Buffer
	n, err := svc.WriteCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "header only")
}

func TestExportLoansXLSX(t *testing.T) {
	_, loans := seedLoans(t)
	svc := NewService(loans, slog.New(slog.NewTextHandler(io.Discard, nil)))

	data, err := svc.ExportLoansXLSX(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Loans")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "bank_name", rows[0][3])
	assert.Equal(t, "Банк А", rows[1][3])
	assert.Equal(t, "Closed", rows[2][11])
}
