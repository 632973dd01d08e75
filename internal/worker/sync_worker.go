package worker

import (
	"context"
	"fmt"
	"log/slog"

	"flotas/internal/amqp"
	"flotas/internal/core"
	"flotas/internal/sheets"
	"flotas/internal/storage"
)

// SyncWorker pushes locally imported ledger rows to the financial data
// sheet. Rows are written to SQLite first and marked synced only after
// the sheet append succeeds, so a crash never loses data.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.LedgerWriter
	reader    sheets.SnapshotReader
	batchSize int
}

func NewSyncWorker(repo *storage.SQLiteRepository, writer sheets.LedgerWriter, reader sheets.SnapshotReader, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{
		storage:   repo,
		writer:    writer,
		reader:    reader,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes one sync message from the queue. The
// message carries only the row ID; the row itself lives in SQLite.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.InfoContext(ctx, "Processing ledger sync message", "id", msg.ID, "year", msg.Year)

	row, err := w.storage.GetLedgerRow(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("fetch ledger row %d: %w", msg.ID, err)
	}
	if row.Synced {
		slog.InfoContext(ctx, "Ledger row already synced, skipping", "id", msg.ID)
		return nil
	}

	return w.syncRowToSheet(ctx, row)
}

// ProcessPendingRows pushes unsynced rows in batches. It is the safety
// net for messages lost between publish and consume.
func (w *SyncWorker) ProcessPendingRows(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncRows(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending sync rows: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending ledger rows", "count", len(pending))

	for _, row := range pending {
		if err := w.syncRowToSheet(ctx, row); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending row", "id", row.ID, "error", err)
			// Keep going; the row stays pending or is marked errored.
		}
	}
	return nil
}

// StartupSyncCheck drains the backlog left over from a previous run.
// Uses a larger batch than the periodic pass since startup is rare.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncRows(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending sync rows: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending ledger rows at startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending ledger rows at startup", "count", len(pending))

	synced, errored := 0, 0
	for _, row := range pending {
		if err := w.syncRowToSheet(ctx, row); err != nil {
			errored++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync check completed",
		"total", len(pending),
		"synced", synced,
		"errors", errored)
	return nil
}

// RefreshMirror replaces the local copy of the reference collections
// with what the sheets currently hold. No-op without a reader.
func (w *SyncWorker) RefreshMirror(ctx context.Context) error {
	if w.reader == nil {
		return nil
	}

	snap, err := fetchSnapshot(ctx, w.reader)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	if err := w.storage.ReplaceReferenceData(ctx, snap); err != nil {
		return fmt.Errorf("replace reference data: %w", err)
	}
	return nil
}

func (w *SyncWorker) syncRowToSheet(ctx context.Context, row storage.PendingSyncRow) error {
	if err := w.writer.AppendLedger(ctx, []core.LedgerRow{row.Row}); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, row.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", row.ID, "error", markErr)
		}
		return fmt.Errorf("append ledger row to sheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, row.ID); err != nil {
		// The append went through; losing the flag only means an
		// extra sync attempt later.
		slog.ErrorContext(ctx, "Failed to mark row as synced", "id", row.ID, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Synced ledger row to sheet", "id", row.ID, "year", row.Row.Year)
	return nil
}

func fetchSnapshot(ctx context.Context, r sheets.SnapshotReader) (core.Snapshot, error) {
	var snap core.Snapshot
	var err error

	if snap.Ledger, err = r.ListLedger(ctx); err != nil {
		return core.Snapshot{}, fmt.Errorf("list ledger: %w", err)
	}
	if snap.Classifications, err = r.ListClassifications(ctx); err != nil {
		return core.Snapshot{}, fmt.Errorf("list classifications: %w", err)
	}
	if snap.Vehicles, err = r.ListVehicles(ctx); err != nil {
		return core.Snapshot{}, fmt.Errorf("list vehicles: %w", err)
	}
	if snap.Incomes, err = r.ListIncome(ctx); err != nil {
		return core.Snapshot{}, fmt.Errorf("list income: %w", err)
	}
	if snap.Amortizations, err = r.ListAmortizations(ctx); err != nil {
		return core.Snapshot{}, fmt.Errorf("list amortizations: %w", err)
	}
	return snap, nil
}
