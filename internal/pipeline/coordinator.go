package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/MaxeeTig/creditstory/internal/entity"
	"github.com/MaxeeTig/creditstory/internal/llm"
	"github.com/MaxeeTig/creditstory/internal/normalize"
	"github.com/MaxeeTig/creditstory/internal/repository"
)

// Config holds batch-size and pacing knobs for a coordinator run.
type Config struct {
	// BatchSize groups spans for progress accounting.
	BatchSize int
	// CallDelay is the minimum interval between extraction calls, keeping
	// the run under the external rate limit.
	CallDelay time.Duration
}

// Coordinator drives unprocessed spans through extraction and
// normalization, strictly one span at a time. Each span gets exactly one
// attempt per run; failures are recorded against the span and never abort
// the batch.
type Coordinator struct {
	logger     *slog.Logger
	cfg        Config
	spans      repository.SpanRepository
	loans      repository.LoanRepository
	extractor  llm.FieldExtractor
	normalizer *normalize.Normalizer
	limiter    *rate.Limiter
}

func NewCoordinator(
	logger *slog.Logger,
	cfg Config,
	spans repository.SpanRepository,
	loans repository.LoanRepository,
	extractor llm.FieldExtractor,
	normalizer *normalize.Normalizer,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	limit := rate.Inf
	if cfg.CallDelay > 0 {
		limit = rate.Every(cfg.CallDelay)
	}
	return &Coordinator{
		logger:     logger,
		cfg:        cfg,
		spans:      spans,
		loans:      loans,
		extractor:  extractor,
		normalizer: normalizer,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Run processes every currently unprocessed span and returns the run
// summary. Re-invocation is idempotent: spans attempted in an earlier run
// are not selected again.
func (c *Coordinator) Run(ctx context.Context) (*entity.RunSummary, error) {
	runID := uuid.New().String()

	spans, err := c.spans.Unprocessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("select unprocessed spans: %w", err)
	}
	summary := &entity.RunSummary{RunID: runID, Total: len(spans)}
	if len(spans) == 0 {
		c.logger.Info("coordinator.run.empty", "run_id", runID)
		return summary, nil
	}

	c.logger.Info("coordinator.run.start",
		"run_id", runID,
		"spans", len(spans),
		"batch_size", c.cfg.BatchSize,
		"call_delay", c.cfg.CallDelay.String(),
	)

	processed := 0
	for i := 0; i < len(spans); i += c.cfg.BatchSize {
		end := i + c.cfg.BatchSize
		if end > len(spans) {
			end = len(spans)
		}
		for _, span := range spans[i:end] {
			if err := c.limiter.Wait(ctx); err != nil {
				return summary, fmt.Errorf("rate limit wait: %w", err)
			}
			outcome := c.processSpan(ctx, span)
			if outcome.Succeeded() {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
			processed++
			if processed%10 == 0 {
				c.logger.Info("coordinator.run.progress",
					"run_id", runID,
					"processed", processed,
					"total", len(spans),
				)
			}
		}
		c.logger.Info("coordinator.batch.done",
			"run_id", runID,
			"batch", i/c.cfg.BatchSize+1,
		)
	}

	c.logger.Info("coordinator.run.done",
		"run_id", runID,
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)
	return summary, nil
}

// processSpan gives one span its single attempt: extract, normalize, store.
// Whatever happens, the span ends up marked processed.
func (c *Coordinator) processSpan(ctx context.Context, span *entity.Span) entity.ProcessingOutcome {
	fields, _, err := c.extractor.ExtractFields(ctx, span.Content)
	if err != nil {
		return c.recordFailure(ctx, span.ID, fmt.Errorf("extraction: %w", err))
	}
	if fields == nil {
		return c.recordFailure(ctx, span.ID, fmt.Errorf("extraction returned no field map"))
	}

	rec, err := c.normalizer.Normalize(span.ID, fields)
	if err != nil {
		return c.recordFailure(ctx, span.ID, fmt.Errorf("normalization: %w", err))
	}

	if _, err := c.loans.StoreForSpan(ctx, rec); err != nil {
		return c.recordFailure(ctx, span.ID, fmt.Errorf("store record: %w", err))
	}

	c.logger.Info("coordinator.span.ok",
		"span_id", span.ID,
		"page", span.PageNumber,
		"bank", rec.BankName,
		"status", string(rec.LoanStatus),
	)
	return entity.ProcessingOutcome{SpanID: span.ID, Record: rec}
}

func (c *Coordinator) recordFailure(ctx context.Context, spanID int64, cause error) entity.ProcessingOutcome {
	msg := cause.Error()
	if err := c.spans.MarkProcessed(ctx, spanID, &msg); err != nil {
		c.logger.Error("coordinator.span.mark_failed", "span_id", spanID, "error", err)
	}
	c.logger.Warn("coordinator.span.failed", "span_id", spanID, "cause", msg)
	return entity.ProcessingOutcome{SpanID: spanID, FailureCause: msg}
}
