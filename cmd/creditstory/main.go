package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/MaxeeTig/creditstory/internal/common"
	"github.com/MaxeeTig/creditstory/internal/export"
	"github.com/MaxeeTig/creditstory/internal/llm/mistral"
	"github.com/MaxeeTig/creditstory/internal/normalize"
	"github.com/MaxeeTig/creditstory/internal/pagetext"
	"github.com/MaxeeTig/creditstory/internal/pipeline"
	"github.com/MaxeeTig/creditstory/internal/repository"
	"github.com/MaxeeTig/creditstory/internal/segment"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		pdfPath  = flag.String("pdf", "", "credit report PDF to process (required)")
		start    = flag.Int("start", 1, "first page of the report body (1-based)")
		end      = flag.Int("end", 0, "last page of the report body, inclusive (required)")
		out      = flag.String("out", "", "output CSV path (defaults to loans_<timestamp>.csv)")
		xlsxPath = flag.String("xlsx", "", "optional XLSX output path")
		dbPath   = flag.String("db", "", "override storage path (defaults to CREDIT_DB_PATH)")
	)
	flag.Parse()

	if *pdfPath == "" {
		printError("Error: --pdf is required\n")
		os.Exit(1)
	}
	if *end < *start || *start < 1 {
		printError("Error: --start/--end must describe a valid 1-based page range\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = fmt.Sprintf("loans_%s.csv", time.Now().Format("20060102_150405"))
	}

	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.Open(ctx, cfg.Database.Path, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	spansRepo := repository.NewSpanRepository(db, logger)
	loansRepo := repository.NewLoanRepository(db, logger)

	provider := pagetext.NewPDFProvider(*pdfPath, pagetext.Band{
		YMin: cfg.PageText.BodyYMin,
		YMax: cfg.PageText.BodyYMax,
	}, logger)
	segmenter := segment.NewSegmenter(segment.NewMatcher(), cfg.Pipeline.MinSpanLength, logger)

	extractor := mistral.NewClient(mistral.Config{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	coordinator := pipeline.NewCoordinator(logger, pipeline.Config{
		BatchSize: cfg.Pipeline.BatchSize,
		CallDelay: cfg.Pipeline.CallDelay,
	}, spansRepo, loansRepo, extractor, normalize.NewNormalizer(logger))

	// Step 1: cut report pages into loan-entry spans.
	logger.Info("step 1: segmenting report pages", "pdf", *pdfPath, "start", *start, "end", *end)
	pages, err := provider.PagesInRange(ctx, *start, *end)
	if err != nil {
		logger.Error("failed to read report pages", "error", err)
		os.Exit(1)
	}
	stored := 0
	for _, page := range pages {
		for _, span := range segmenter.SegmentPage(page.Number, page.Text) {
			if _, err := spansRepo.Store(ctx, &span); err != nil {
				logger.Error("failed to store span", "page", page.Number, "error", err)
				os.Exit(1)
			}
			stored++
		}
	}
	logger.Info("segmentation complete", "spans", stored, "pages_with_text", len(pages))
	if stored == 0 {
		logger.Warn("no spans extracted; check report content and page range")
		return
	}

	// Step 2: extract and normalize every unprocessed span.
	logger.Info("step 2: processing spans")
	summary, err := coordinator.Run(ctx)
	if err != nil {
		logger.Error("processing failed", "error", err)
		os.Exit(1)
	}

	// Step 3: export.
	logger.Info("step 3: exporting loan records", "out", *out)
	exportService := export.NewService(loansRepo, logger)

	outFile, err := os.Create(*out)
	if err != nil {
		logger.Error("failed to create output file", "error", err)
		os.Exit(1)
	}
	rows, err := exportService.WriteCSV(ctx, outFile)
	if cerr := outFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.Error("failed to export CSV", "error", err)
		os.Exit(1)
	}

	if *xlsxPath != "" {
		xlsxBytes, err := exportService.ExportLoansXLSX(ctx)
		if err != nil {
			logger.Error("failed to export XLSX", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxPath, xlsxBytes, 0644); err != nil {
			logger.Error("failed to write XLSX file", "error", err)
			os.Exit(1)
		}
	}

	stats, err := repository.CollectStats(ctx, db)
	if err != nil {
		logger.Error("failed to collect statistics", "error", err)
		os.Exit(1)
	}
	logger.Info("run complete",
		"run_id", summary.RunID,
		"spans_total", stats.TotalSpans,
		"spans_processed", stats.ProcessedSpans,
		"loans", stats.TotalLoans,
		"errors", stats.ErrorSpans,
	)

	fmt.Printf("Processing complete!\n")
	fmt.Printf("- Spans extracted this run: %d\n", stored)
	fmt.Printf("- Spans processed: %d (%d ok, %d failed)\n", summary.Total, summary.Succeeded, summary.Failed)
	fmt.Printf("- Loan records exported: %d\n", rows)
	fmt.Printf("- Success rate: %.1f%%\n", stats.SuccessRate*100)
	fmt.Printf("- Output: %s\n", *out)
}
