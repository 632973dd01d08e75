// Package adapters bridges the local SQLite mirror to the sheets
// interfaces so the rest of the app never cares which backend serves
// the data.
package adapters

import (
	"context"
	"log/slog"

	"flotas/internal/amqp"
	"flotas/internal/core"
	"flotas/internal/storage"
)

// SQLiteAdapter serves snapshots from the local mirror and routes
// ledger appends through the local-first import path: rows land in
// SQLite and a sync message per row tells the worker to push them to
// the sheet.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	amqp    *amqp.Client
}

func NewSQLiteAdapter(repo *storage.SQLiteRepository, amqpClient *amqp.Client) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: repo,
		amqp:    amqpClient,
	}
}

func (a *SQLiteAdapter) ListLedger(ctx context.Context) ([]core.LedgerRow, error) {
	return a.storage.ListLedger(ctx)
}

func (a *SQLiteAdapter) ListClassifications(ctx context.Context) ([]core.Classification, error) {
	return a.storage.ListClassifications(ctx)
}

func (a *SQLiteAdapter) ListVehicles(ctx context.Context) ([]core.Vehicle, error) {
	return a.storage.ListVehicles(ctx)
}

func (a *SQLiteAdapter) ListIncome(ctx context.Context) ([]core.YearlyIncome, error) {
	return a.storage.ListIncome(ctx)
}

func (a *SQLiteAdapter) ListAmortizations(ctx context.Context) ([]core.AmortizationAccount, error) {
	return a.storage.ListAmortizations(ctx)
}

// AppendLedger stores rows locally and queues them for the sheet.
func (a *SQLiteAdapter) AppendLedger(ctx context.Context, rows []core.LedgerRow) error {
	ids, err := a.storage.InsertLedgerRows(ctx, rows)
	if err != nil {
		return err
	}
	if a.amqp == nil {
		return nil
	}
	for i, id := range ids {
		if err := a.amqp.PublishLedgerSync(ctx, id, rows[i].Year); err != nil {
			// Row is stored; the worker's pending pass covers it.
			slog.WarnContext(ctx, "Failed to publish sync message", "id", id, "error", err)
		}
	}
	return nil
}
