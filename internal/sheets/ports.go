package sheets

import (
	"context"

	"flotas/internal/core"
)

// Ports for outbound adapters. Each spreadsheet-backed collection gets
// its own narrow reader so callers depend only on what they consume.
type (
	LedgerReader interface {
		ListLedger(ctx context.Context) ([]core.LedgerRow, error)
	}

	ClassificationReader interface {
		ListClassifications(ctx context.Context) ([]core.Classification, error)
	}

	FleetReader interface {
		ListVehicles(ctx context.Context) ([]core.Vehicle, error)
	}

	IncomeReader interface {
		ListIncome(ctx context.Context) ([]core.YearlyIncome, error)
	}

	AmortizationReader interface {
		ListAmortizations(ctx context.Context) ([]core.AmortizationAccount, error)
	}

	// LedgerWriter appends imported profit-and-loss rows to the ledger
	// sheet. Used by the sync worker, not by request handlers.
	LedgerWriter interface {
		AppendLedger(ctx context.Context, rows []core.LedgerRow) error
	}

	// SnapshotReader is the full read surface the analysis service
	// fetches in parallel.
	SnapshotReader interface {
		LedgerReader
		ClassificationReader
		FleetReader
		IncomeReader
		AmortizationReader
	}
)
