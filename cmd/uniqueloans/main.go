package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MaxeeTig/creditstory/internal/common"
	"github.com/MaxeeTig/creditstory/internal/pagetext"
	"github.com/MaxeeTig/creditstory/internal/segment"
)

// uniqueloans lists the distinct loan-entry headers found in a page range,
// in document order, and writes them to a report file. Useful for sizing a
// report before a full extraction run.
func main() {
	var (
		pdfPath = flag.String("pdf", "", "credit report PDF to scan (required)")
		start   = flag.Int("start", 1, "first page (1-based)")
		end     = flag.Int("end", 0, "last page, inclusive (required)")
		out     = flag.String("out", "", "report path (defaults to unique_loans_<timestamp>.txt)")
	)
	flag.Parse()

	if *pdfPath == "" || *end < *start || *start < 1 {
		fmt.Fprintln(os.Stderr, "Usage: uniqueloans --pdf <file> --start <n> --end <n> [--out <file>]")
		os.Exit(1)
	}
	if *out == "" {
		*out = fmt.Sprintf("unique_loans_%s.txt", time.Now().Format("20060102_150405"))
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg := common.LoadConfig()
	provider := pagetext.NewPDFProvider(*pdfPath, pagetext.Band{
		YMin: cfg.PageText.BodyYMin,
		YMax: cfg.PageText.BodyYMax,
	}, logger)
	matcher := segment.NewMatcher()

	pages, err := provider.PagesInRange(context.Background(), *start, *end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	seen := make(map[string]struct{})
	var headers []string
	for _, page := range pages {
		for _, b := range matcher.FindAll(page.Text) {
			label := strings.TrimSpace(b.Label)
			key := label + "|" + b.Rule
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			headers = append(headers, fmt.Sprintf("%s (%s)", label, b.Rule))
		}
	}

	fmt.Printf("Found %d unique headers:\n", len(headers))
	for i, h := range headers {
		fmt.Printf("%d. %s\n", i+1, h)
	}

	if err := os.WriteFile(*out, []byte(strings.Join(headers, "\n")), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Report saved to: %s\n", *out)
}
