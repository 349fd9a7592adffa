package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"ledger/internal/log"
	"ledger/internal/metrics"
)

const (
	copySelectSQL = `SELECT tipo, concepto, monto, fecha FROM movimientos ORDER BY id`
	copyInsertSQL = `INSERT INTO movimientos (tipo, concepto, monto, fecha) VALUES (?, ?, ?, ?)`
)

// CopyReport summarizes a CopyMovements run.
type CopyReport struct {
	SourceCount      int64
	DestinationCount int64
	Copied           int64
	// Skipped is set when nothing was copied on purpose.
	Skipped string
}

// CopyMovements copies every movement from src into dst in id order. The
// destination schema is created if needed. Nothing is copied when the source
// is empty; a destination that already holds rows is refused with
// ErrDestinationNotEmpty. All inserts share one destination transaction, so a
// failure leaves the destination untouched.
func CopyMovements(ctx context.Context, src, dst *Provider, logger *slog.Logger) (CopyReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var report CopyReport
	start := time.Now()

	if err := EnsureSchema(ctx, dst); err != nil {
		return report, err
	}

	srcRepo := NewMovementRepository(src)
	dstRepo := NewMovementRepository(dst)

	var err error
	if report.SourceCount, err = srcRepo.Count(ctx); err != nil {
		return report, fmt.Errorf("count source: %w", err)
	}
	if report.DestinationCount, err = dstRepo.Count(ctx); err != nil {
		return report, fmt.Errorf("count destination: %w", err)
	}
	logger.InfoContext(ctx, "Copy counts",
		"source_engine", src.Engine(),
		"source_count", report.SourceCount,
		"destination_engine", dst.Engine(),
		"destination_count", report.DestinationCount)

	if report.SourceCount == 0 {
		report.Skipped = "source has no movements"
		logger.InfoContext(ctx, "Nothing to copy", "reason", report.Skipped)
		return report, nil
	}
	if report.DestinationCount > 0 {
		report.Skipped = ErrDestinationNotEmpty.Error()
		return report, ErrDestinationNotEmpty
	}

	rows, err := readAll(ctx, src)
	if err != nil {
		return report, err
	}

	err = copyInto(ctx, dst, rows)
	metrics.ObserveQuery(log.OpCopy, dst.Engine().String(), err, time.Since(start))
	if err != nil {
		return report, queryErr(log.OpCopy, err)
	}
	report.Copied = int64(len(rows))

	if report.DestinationCount, err = dstRepo.Count(ctx); err != nil {
		return report, fmt.Errorf("count destination: %w", err)
	}
	logger.InfoContext(ctx, "Copy completed",
		"copied", report.Copied,
		"destination_count", report.DestinationCount,
		log.FieldDuration, time.Since(start).Milliseconds())
	return report, nil
}

func readAll(ctx context.Context, p *Provider) ([]Row, error) {
	conn, err := p.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryxContext(ctx, copySelectSQL)
	if err != nil {
		return nil, queryErr(log.OpCopy, fmt.Errorf("read source: %w", err))
	}
	defer rows.Close()
	return scanRows(rows)
}

func copyInto(ctx context.Context, p *Provider, rows []Row) (err error) {
	conn, err := p.Open(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insert := p.Dialect().Rebind(copyInsertSQL)
	for i, row := range rows {
		if err = insertCopied(ctx, tx, insert, row); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertCopied(ctx context.Context, tx *sqlx.Tx, query string, row Row) error {
	typ, err := row.String("tipo")
	if err != nil {
		return err
	}
	concept, err := row.String("concepto")
	if err != nil {
		return err
	}
	amount, err := row.Money("monto")
	if err != nil {
		return err
	}
	date, err := row.Date("fecha")
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, typ, concept, amount.Float64(), date.String())
	return err
}
