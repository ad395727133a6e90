package normalize

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MaxeeTig/creditstory/internal/common"
	"github.com/MaxeeTig/creditstory/internal/entity"
	"github.com/MaxeeTig/creditstory/internal/llm"
)

const (
	// dateLayout is the report's DD-MM-YYYY date format.
	dateLayout = "02-01-2006"
	// farFutureSentinel encodes "no scheduled termination" in the source
	// system; it is not a real calendar date.
	farFutureSentinel = "31-12-9999"
	// currencyCodeLen is the trailing currency code length in combined
	// amount strings such as "50000,00 RUB".
	currencyCodeLen = 3
)

// notApplicableMarkers are the report's "value not recorded" encodings.
var notApplicableMarkers = []string{"Н/Д", "N/A"}

// Normalizer converts a well-formed extraction field map into a validated
// loan record.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize builds the loan record for one span. A missing bank name is the
// one hard failure; every other field degrades to absent on bad input.
func (n *Normalizer) Normalize(spanID int64, fields llm.FieldMap) (*entity.LoanRecord, error) {
	amount, currency := n.splitAmount(fields)

	dealDate, _ := n.normalizeDate(fields, llm.FieldDealDate)
	terminationDate, terminationSentinel := n.normalizeDate(fields, llm.FieldTerminationDate)
	actualTerminationDate, _ := n.normalizeDate(fields, llm.FieldActualTerminationDate)

	bankName := strings.TrimSpace(stringField(fields, llm.FieldBankName))
	if bankName == "" {
		return nil, fmt.Errorf("span %d: %w", spanID, common.ErrMissingBankName)
	}

	rec := &entity.LoanRecord{
		SpanID:                spanID,
		BankName:              bankName,
		DealDate:              dealDate,
		DealType:              optionalString(fields, llm.FieldDealType),
		LoanType:              optionalString(fields, llm.FieldLoanType),
		CardUsage:             optionalBool(fields, llm.FieldCardUsage),
		LoanAmount:            amount,
		LoanCurrency:          currency,
		TerminationDate:       terminationDate,
		ActualTerminationDate: actualTerminationDate,
		ExtractedAt:           time.Now().UTC(),
	}
	rec.LoanStatus = n.deriveStatus(fields, terminationSentinel, terminationDate, actualTerminationDate)

	return rec, nil
}

// splitAmount resolves loan_amount/loan_currency. A combined string carries
// the currency in its trailing three characters; a bare number is only
// usable when a separate 3-letter loan_currency arrived with it. Amount and
// currency are present together or not at all.
func (n *Normalizer) splitAmount(fields llm.FieldMap) (*decimal.Decimal, *string) {
	switch v := fields[llm.FieldLoanAmount].(type) {
	case string:
		s := strings.TrimSpace(v)
		if len(s) < currencyCodeLen {
			return nil, nil
		}
		currency := strings.TrimSpace(s[len(s)-currencyCodeLen:])
		amountPart := strings.TrimSpace(s[:len(s)-currencyCodeLen])
		amountPart = strings.ReplaceAll(amountPart, ",", ".")
		d, err := decimal.NewFromString(amountPart)
		if err != nil || !d.IsPositive() {
			n.logger.Debug("normalize.amount.unparseable", "raw", v)
			return nil, nil
		}
		return &d, &currency
	case float64:
		currency := strings.TrimSpace(stringField(fields, llm.FieldLoanCurrency))
		if len(currency) != currencyCodeLen {
			return nil, nil
		}
		d := decimal.NewFromFloat(v)
		if !d.IsPositive() {
			return nil, nil
		}
		return &d, &currency
	default:
		return nil, nil
	}
}

// normalizeDate parses one date field. Not-applicable markers and the
// far-future sentinel both become absent; only the sentinel is reported
// back, since status derivation must distinguish it from a date that was
// never recorded. Parse failures are never fatal.
func (n *Normalizer) normalizeDate(fields llm.FieldMap, key string) (*time.Time, bool) {
	v, ok := fields[key].(string)
	if !ok {
		return nil, false
	}
	s := strings.TrimSpace(v)
	for _, marker := range notApplicableMarkers {
		if strings.EqualFold(s, marker) {
			return nil, false
		}
	}
	if s == farFutureSentinel {
		return nil, true
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		n.logger.Debug("normalize.date.unparseable", "field", key, "raw", v)
		return nil, false
	}
	t = t.UTC()
	return &t, false
}

// deriveStatus applies the business rules in precedence order. The sentinel
// check comes first: a sentinel termination date reads as absent by the
// time this runs and would otherwise look like "no termination recorded".
// A status already supplied by the extractor wins over derivation.
func (n *Normalizer) deriveStatus(fields llm.FieldMap, terminationSentinel bool, terminationDate, actualTerminationDate *time.Time) entity.LoanStatus {
	if supplied := strings.TrimSpace(stringField(fields, llm.FieldLoanStatus)); supplied != "" {
		switch {
		case strings.EqualFold(supplied, string(entity.LoanStatusActive)):
			return entity.LoanStatusActive
		case strings.EqualFold(supplied, string(entity.LoanStatusClosed)):
			return entity.LoanStatusClosed
		}
		n.logger.Debug("normalize.status.unknown_supplied", "raw", supplied)
	}

	switch {
	case terminationSentinel:
		return entity.LoanStatusActive
	case terminationDate != nil && actualTerminationDate == nil:
		return entity.LoanStatusActive
	case terminationDate != nil && actualTerminationDate != nil:
		return entity.LoanStatusClosed
	default:
		return entity.LoanStatusActive
	}
}

func stringField(fields llm.FieldMap, key string) string {
	s, _ := fields[key].(string)
	return s
}

func optionalString(fields llm.FieldMap, key string) *string {
	s := strings.TrimSpace(stringField(fields, key))
	if s == "" {
		return nil
	}
	return &s
}

func optionalBool(fields llm.FieldMap, key string) *bool {
	b, ok := fields[key].(bool)
	if !ok {
		return nil
	}
	return &b
}
