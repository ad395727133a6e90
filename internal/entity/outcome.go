package entity

// ProcessingOutcome is the per-span result of one pipeline attempt: either a
// normalized record or a failure cause. Exactly one of Record/FailureCause
// is set.
type ProcessingOutcome struct {
	SpanID       int64       `json:"span_id"`
	Record       *LoanRecord `json:"record,omitempty"`
	FailureCause string      `json:"failure_cause,omitempty"`
}

// Succeeded reports whether the span produced a loan record.
func (o ProcessingOutcome) Succeeded() bool {
	return o.Record != nil
}

// RunSummary is the end-of-run accounting the coordinator reports.
type RunSummary struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// StorageStats aggregates span/loan counts for reporting.
type StorageStats struct {
	TotalSpans     int     `json:"total_spans"`
	ProcessedSpans int     `json:"processed_spans"`
	TotalLoans     int     `json:"total_loans"`
	ErrorSpans     int     `json:"error_spans"`
	SuccessRate    float64 `json:"success_rate"`
}
