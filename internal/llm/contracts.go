package llm

import "context"

// Field names the extraction collaborator reports. The set is fixed; values
// may be a string, boolean, number, or null/absent.
const (
	FieldBankName              = "bank_name"
	FieldDealDate              = "deal_date"
	FieldDealType              = "deal_type"
	FieldLoanType              = "loan_type"
	FieldCardUsage             = "card_usage"
	FieldLoanAmount            = "loan_amount"
	FieldLoanCurrency          = "loan_currency"
	FieldTerminationDate       = "termination_date"
	FieldActualTerminationDate = "actual_termination_date"
	FieldLoanStatus            = "loan_status"
)

// FieldMap is the well-formed, loosely-typed result of one extraction call.
// Shape and field types are already schema-checked; a response that fails
// that check never reaches the normalizer and surfaces as an error instead.
type FieldMap map[string]any

// FieldExtractor turns one span's text into a field map. The raw response
// body is returned alongside for failure bookkeeping.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, spanText string) (FieldMap, []byte, error)
}
