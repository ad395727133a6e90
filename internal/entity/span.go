package entity

import "time"

// Span represents one candidate loan entry cut out of a report page.
// Offsets index into the page text the segmenter was given; Content is the
// same range with whitespace runs collapsed to single spaces and trimmed.
type Span struct {
	ID              int64     `json:"id"`
	PageNumber      int       `json:"page_number"`
	StartOffset     int       `json:"start_offset"`
	EndOffset       int       `json:"end_offset"`
	Content         string    `json:"content"`
	ExtractedAt     time.Time `json:"extracted_at"`
	Processed       bool      `json:"processed"`
	ProcessingError *string   `json:"processing_error,omitempty"`
}
