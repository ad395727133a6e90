package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the derived lifecycle state of a loan record.
type LoanStatus string

const (
	LoanStatusActive LoanStatus = "Active"
	LoanStatusClosed LoanStatus = "Closed"
)

// LoanRecord is a normalized loan extracted from one span. Pointer fields
// are absent when the report did not carry the value (or carried a
// not-applicable marker). LoanAmount and LoanCurrency are present together
// or not at all.
type LoanRecord struct {
	ID                    int64            `json:"id"`
	SpanID                int64            `json:"span_id"`
	BankName              string           `json:"bank_name"`
	DealDate              *time.Time       `json:"deal_date,omitempty"`
	DealType              *string          `json:"deal_type,omitempty"`
	LoanType              *string          `json:"loan_type,omitempty"`
	CardUsage             *bool            `json:"card_usage,omitempty"`
	LoanAmount            *decimal.Decimal `json:"loan_amount,omitempty"`
	LoanCurrency          *string          `json:"loan_currency,omitempty"`
	TerminationDate       *time.Time       `json:"termination_date,omitempty"`
	ActualTerminationDate *time.Time       `json:"actual_termination_date,omitempty"`
	LoanStatus            LoanStatus       `json:"loan_status"`
	ExtractedAt           time.Time        `json:"extracted_at"`
}

// LoanExportRow is a loan joined with its source span's page number, the
// flat shape the export surface writes.
type LoanExportRow struct {
	LoanRecord
	PageNumber int `json:"page_number"`
}
