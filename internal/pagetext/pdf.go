package pagetext

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Band is the vertical coordinate range of the document body. Text rows at
// or outside the band edges are page headers/footers and are dropped.
type Band struct {
	YMin float64
	YMax float64
}

// PDFProvider reads per-page body text from a PDF file.
type PDFProvider struct {
	path   string
	band   Band
	logger *slog.Logger
}

func NewPDFProvider(path string, band Band, logger *slog.Logger) *PDFProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFProvider{path: path, band: band, logger: logger}
}

// PagesInRange extracts body text for pages start..end (1-based, inclusive,
// clamped to the document). Pages yielding no body text are skipped.
func (p *PDFProvider) PagesInRange(ctx context.Context, start, end int) ([]Page, error) {
	f, reader, err := pdf.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", p.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			p.logger.Warn("pagetext.close_error", "path", p.path, "error", cerr)
		}
	}()

	if start < 1 {
		start = 1
	}
	if n := reader.NumPage(); end > n {
		end = n
	}

	var pages []Page
	for num := start; num <= end; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		text, err := p.bodyText(page)
		if err != nil {
			p.logger.Warn("pagetext.page_error", "page", num, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: num, Text: text})
	}

	p.logger.Info("pagetext.range.ok",
		"path", p.path,
		"start", start,
		"end", end,
		"pages_with_text", len(pages),
	)
	return pages, nil
}

// bodyText joins the page's text rows inside the body band, top to bottom,
// one line per row.
func (p *PDFProvider) bodyText(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", fmt.Errorf("text rows: %w", err)
	}

	var b strings.Builder
	for _, row := range rows {
		y := float64(row.Position)
		if y <= p.band.YMin || y >= p.band.YMax {
			continue
		}
		line := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			if word.S != "" {
				line = append(line, word.S)
			}
		}
		if len(line) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(line, " "))
	}
	return b.String(), nil
}
