package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA foreign_keys = ON;

-- One row per candidate loan-entry span cut out of the report.
CREATE TABLE IF NOT EXISTS spans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    content TEXT NOT NULL,
    page_number INTEGER NOT NULL,
    start_offset INTEGER NOT NULL DEFAULT 0,
    end_offset INTEGER NOT NULL DEFAULT 0,
    extracted_at TEXT NOT NULL,
    processed BOOLEAN NOT NULL DEFAULT 0,
    processing_error TEXT
);

CREATE INDEX IF NOT EXISTS idx_spans_processed ON spans(processed);

-- One row per successfully normalized loan record.
CREATE TABLE IF NOT EXISTS loans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    span_id INTEGER NOT NULL,
    bank_name TEXT NOT NULL,
    deal_date TEXT,
    deal_type TEXT,
    loan_type TEXT,
    card_usage BOOLEAN,
    loan_amount TEXT,
    loan_currency TEXT,
    termination_date TEXT,
    actual_termination_date TEXT,
    loan_status TEXT NOT NULL,
    extracted_at TEXT NOT NULL,
    FOREIGN KEY (span_id) REFERENCES spans(id)
);

CREATE INDEX IF NOT EXISTS idx_loans_span ON loans(span_id);
`

// Open opens (or creates) the SQLite store at path and ensures the schema
// exists. Use ":memory:" for tests.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	logger.Info("repository.open.ok", "path", path)
	return db, nil
}
