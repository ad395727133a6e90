package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/MaxeeTig/creditstory/internal/common"
	"github.com/MaxeeTig/creditstory/internal/repository"
)

// dbcheck prints storage contents: aggregate counts plus the most recent
// spans and loan records.
func main() {
	var (
		dbPath = flag.String("db", "", "storage path (defaults to CREDIT_DB_PATH)")
		limit  = flag.Int("limit", 5, "number of recent rows to show per table")
	)
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	path := *dbPath
	if path == "" {
		path = common.LoadConfig().Database.Path
	}

	ctx := context.Background()
	db, err := repository.Open(ctx, path, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	stats, err := repository.CollectStats(ctx, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("=== STORAGE %s ===\n", path)
	fmt.Printf("Spans: %d total, %d processed, %d with errors\n",
		stats.TotalSpans, stats.ProcessedSpans, stats.ErrorSpans)
	fmt.Printf("Loans: %d\n\n", stats.TotalLoans)

	spans, err := repository.NewSpanRepository(db, logger).Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("=== RECENT SPANS ===")
	for _, s := range spans {
		fmt.Printf("ID: %d, Page: %d, Processed: %t\n", s.ID, s.PageNumber, s.Processed)
		if s.ProcessingError != nil {
			fmt.Printf("Error: %s\n", *s.ProcessingError)
		}
		fmt.Printf("Content: %s...\n\n", truncate(s.Content, 100))
	}

	loans, err := repository.NewLoanRepository(db, logger).Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("=== RECENT LOANS ===")
	for _, l := range loans {
		fmt.Printf("Loan ID: %d (span %d)\n", l.ID, l.SpanID)
		fmt.Printf("Bank: %s\n", l.BankName)
		if l.LoanAmount != nil && l.LoanCurrency != nil {
			fmt.Printf("Amount: %s %s\n", l.LoanAmount.String(), *l.LoanCurrency)
		}
		fmt.Printf("Status: %s\n\n", l.LoanStatus)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
