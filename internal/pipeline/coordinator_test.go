package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxeeTig/creditstory/internal/entity"
	"github.com/MaxeeTig/creditstory/internal/llm"
	"github.com/MaxeeTig/creditstory/internal/normalize"
	"github.com/MaxeeTig/creditstory/internal/repository"
)

// stubExtractor maps a span-content substring to its canned field map or
// error, standing in for the remote model.
type stubExtractor struct {
	fields map[string]llm.FieldMap
	errs   map[string]error
	calls  int
}

func (s *stubExtractor) ExtractFields(_ context.Context, spanText string) (llm.FieldMap, []byte, error) {
	s.calls++
	for key, err := range s.errs {
		if strings.Contains(spanText, key) {
			return nil, nil, err
		}
	}
	for key, fields := range s.fields {
		if strings.Contains(spanText, key) {
			return fields, nil, nil
		}
	}
	return nil, nil, errors.New("no canned response for span")
}

type pipelineHarness struct {
	db        *sql.DB
	spans     repository.SpanRepository
	loans     repository.LoanRepository
	extractor *stubExtractor
	coord     *Coordinator
}

func newHarness(t *testing.T, extractor *stubExtractor) *pipelineHarness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	spans := repository.NewSpanRepository(db, logger)
	loans := repository.NewLoanRepository(db, logger)
	coord := NewCoordinator(logger, Config{BatchSize: 2}, spans, loans, extractor, normalize.NewNormalizer(logger))
	return &pipelineHarness{db: db, spans: spans, loans: loans, extractor: extractor, coord: coord}
}

func (h *pipelineHarness) seedSpan(t *testing.T, page int, content string) int64 {
	t.Helper()
	id, err := h.spans.Store(context.Background(), &entity.Span{
		PageNumber: page,
		EndOffset:  len(content),
		Content:    content,
	})
	require.NoError(t, err)
	return id
}

func TestRunStoresRecordsAndMarksSpans(t *testing.T) {
	h := newHarness(t, &stubExtractor{
		fields: map[string]llm.FieldMap{
			"Bank X": {
				"bank_name":        "Bank X",
				"deal_date":        "18-05-2024",
				"loan_amount":      "50000,00 RUB",
				"termination_date": "31-12-9999",
			},
			"Bank Y": {
				"bank_name":               "Bank Y",
				"deal_date":               "03-02-2021",
				"loan_amount":             "120000,00 RUB",
				"termination_date":        "03-02-2023",
				"actual_termination_date": "10-10-2023",
			},
		},
	})
	ctx := context.Background()

	h.seedSpan(t, 7, "1. Bank X - Loan Agreement - signed 18-05-2024 amount 50000,00 RUB term 31-12-9999")
	h.seedSpan(t, 7, "2. Bank Y - Loan Agreement - signed 03-02-2021 amount 120000,00 RUB closed 10-10-2023")

	summary, err := h.coord.Run(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)

	rows, err := h.loans.ListWithPages(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	open := rows[0]
	assert.Equal(t, "Bank X", open.BankName)
	assert.Equal(t, 7, open.PageNumber)
	assert.Nil(t, open.TerminationDate, "far-future sentinel stays absent")
	assert.Equal(t, entity.LoanStatusActive, open.LoanStatus)
	require.NotNil(t, open.LoanAmount)
	assert.Equal(t, "50000", open.LoanAmount.Truncate(0).String())

	closed := rows[1]
	assert.Equal(t, "Bank Y", closed.BankName)
	assert.Equal(t, entity.LoanStatusClosed, closed.LoanStatus)
	require.NotNil(t, closed.TerminationDate)
	require.NotNil(t, closed.ActualTerminationDate)

	pending, err := h.spans.Unprocessed(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	h := newHarness(t, &stubExtractor{
		fields: map[string]llm.FieldMap{
			"Bank X":   {"bank_name": "Bank X"},
			"nameless": {"deal_date": "18-05-2024"},
			"Bank Z":   {"bank_name": "Bank Z"},
		},
		errs: map[string]error{
			"flaky": errors.New("model timeout"),
		},
	})
	ctx := context.Background()

	h.seedSpan(t, 1, "1. Bank X - Loan Agreement good span")
	h.seedSpan(t, 1, "2. flaky span the model never answers")
	h.seedSpan(t, 2, "3. nameless span whose extraction lost the bank")
	h.seedSpan(t, 2, "4. Bank Z - Loan Agreement another good span")

	summary, err := h.coord.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)

	recent, err := h.spans.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 4)
	byContent := map[string]*entity.Span{}
	for _, s := range recent {
		byContent[s.Content] = s
		assert.True(t, s.Processed, "every span gets exactly one attempt")
	}
	flaky := byContent["2. flaky span the model never answers"]
	require.NotNil(t, flaky.ProcessingError)
	assert.Contains(t, *flaky.ProcessingError, "model timeout")
	nameless := byContent["3. nameless span whose extraction lost the bank"]
	require.NotNil(t, nameless.ProcessingError)
	assert.Contains(t, *nameless.ProcessingError, "bank name")

	rows, err := h.loans.ListWithPages(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRunIsIdempotentAcrossInvocations(t *testing.T) {
	extractor := &stubExtractor{
		fields: map[string]llm.FieldMap{
			"Bank X": {"bank_name": "Bank X"},
		},
		errs: map[string]error{
			"flaky": errors.New("model timeout"),
		},
	}
	h := newHarness(t, extractor)
	ctx := context.Background()

	h.seedSpan(t, 1, "1. Bank X - Loan Agreement")
	h.seedSpan(t, 1, "2. flaky span")

	first, err := h.coord.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Total)
	callsAfterFirst := extractor.calls

	second, err := h.coord.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Total, "failed spans are not retried")
	assert.Equal(t, callsAfterFirst, extractor.calls, "no extraction calls on an empty run")

	rows, err := h.loans.ListWithPages(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRunEmptyStore(t *testing.T) {
	h := newHarness(t, &stubExtractor{})

	summary, err := h.coord.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, h.extractor.calls)
}
