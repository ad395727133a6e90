package pagetext

import "context"

// Page is one page of document body text. Text excludes the header/footer
// regions outside the configured vertical band.
type Page struct {
	Number int
	Text   string
}

// Provider yields document body text for each page in a 1-based inclusive
// range. Pages without body text are omitted.
type Provider interface {
	PagesInRange(ctx context.Context, start, end int) ([]Page, error)
}
