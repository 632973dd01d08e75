package storage

import (
	"context"
	"path/filepath"
	"testing"

	"flotas/internal/core"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "flotas.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestInsertAndListLedger(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	ids, err := repo.InsertLedgerRows(ctx, []core.LedgerRow{
		{Year: 2024, Month: 0, DocumentType: core.DocPyG, Concept: "62500000000 SEGUROS", Amount: "-1.234,56"},
		{Year: 2024, Month: 3, DocumentType: core.DocBalance, Concept: "21700000000 EQUIPOS", Amount: "100"},
	})
	if err != nil {
		t.Fatalf("InsertLedgerRows: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}

	rows, err := repo.ListLedger(ctx)
	if err != nil {
		t.Fatalf("ListLedger: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Concept != "62500000000 SEGUROS" || rows[0].Amount != "-1.234,56" {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[1].DocumentType != core.DocBalance {
		t.Fatalf("row 1 document = %v", rows[1].DocumentType)
	}
}

func TestPendingSyncLifecycle(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	ids, err := repo.InsertLedgerRows(ctx, []core.LedgerRow{
		{Year: 2024, DocumentType: core.DocPyG, Concept: "60100000000 A", Amount: "-1"},
		{Year: 2024, DocumentType: core.DocPyG, Concept: "60100000001 B", Amount: "-2"},
		{Year: 2024, DocumentType: core.DocPyG, Concept: "60100000002 C", Amount: "-3"},
	})
	if err != nil {
		t.Fatalf("InsertLedgerRows: %v", err)
	}

	pending, err := repo.GetPendingSyncRows(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncRows: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("got %d pending rows, want 3", len(pending))
	}

	if err := repo.MarkSynced(ctx, ids[0]); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, ids[1]); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}

	pending, err = repo.GetPendingSyncRows(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncRows: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != ids[2] {
		t.Fatalf("pending = %+v, want only the untouched row", pending)
	}

	// Limit applies.
	limited, err := repo.GetPendingSyncRows(ctx, 0)
	if err != nil {
		t.Fatalf("GetPendingSyncRows: %v", err)
	}
	if len(limited) != 0 {
		t.Fatalf("limit 0 must return nothing, got %d", len(limited))
	}
}

func TestGetLedgerRow(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	ids, err := repo.InsertLedgerRows(ctx, []core.LedgerRow{
		{Year: 2024, Month: 5, DocumentType: core.DocPyG, Concept: "62500000000 SEGUROS", Amount: "-500"},
	})
	if err != nil {
		t.Fatalf("InsertLedgerRows: %v", err)
	}

	row, err := repo.GetLedgerRow(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetLedgerRow: %v", err)
	}
	if row.Row.Concept != "62500000000 SEGUROS" || row.Synced {
		t.Fatalf("row = %+v", row)
	}

	if err := repo.MarkSynced(ctx, ids[0]); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	row, err = repo.GetLedgerRow(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetLedgerRow: %v", err)
	}
	if !row.Synced {
		t.Fatal("row must be marked synced")
	}

	if _, err := repo.GetLedgerRow(ctx, 99999); err == nil {
		t.Fatal("missing row must return an error")
	}
}

func TestReplaceReferenceDataRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	snap := core.Snapshot{
		Classifications: []core.Classification{
			{CostType: "60100000000", CostCenter: core.CostCenterDirect, Nature: core.NatureVariable, Distribution: "General", Basis: core.BasisDistance},
		},
		Vehicles: []core.Vehicle{
			{LicensePlate: "1111AAA", ID: "v-1", AcquisitionDate: "2020-01-15", AnnualAmortization: 1200, AnnualKms: map[int]float64{2024: 90000}},
		},
		Incomes: []core.YearlyIncome{
			{
				Year:          2024,
				OwnFleet:      []core.VehicleIncome{{ID: "r1", LicensePlate: "1111AAA", Income: core.MonthlyAmounts{1: 1000, 2: 2000}}},
				Subcontracted: core.MonthlyAmounts{3: 500},
			},
		},
		Amortizations: []core.AmortizationAccount{
			{ID: "a1", Name: "Oficinas", AnnualAmount: 900, AnnualValues: map[int]float64{2024: 950}},
		},
	}
	if err := repo.ReplaceReferenceData(ctx, snap); err != nil {
		t.Fatalf("ReplaceReferenceData: %v", err)
	}

	classifications, err := repo.ListClassifications(ctx)
	if err != nil || len(classifications) != 1 {
		t.Fatalf("ListClassifications = %d, err %v", len(classifications), err)
	}
	if classifications[0].Basis != core.BasisDistance {
		t.Fatalf("classification = %+v", classifications[0])
	}

	vehicles, err := repo.ListVehicles(ctx)
	if err != nil || len(vehicles) != 1 {
		t.Fatalf("ListVehicles = %d, err %v", len(vehicles), err)
	}
	if vehicles[0].AnnualKms[2024] != 90000 {
		t.Fatalf("vehicle kms = %v", vehicles[0].AnnualKms)
	}

	incomes, err := repo.ListIncome(ctx)
	if err != nil || len(incomes) != 1 {
		t.Fatalf("ListIncome = %d, err %v", len(incomes), err)
	}
	if incomes[0].OwnFleet[0].Income.Total() != 3000 {
		t.Fatalf("own income = %v", incomes[0].OwnFleet[0].Income)
	}
	if incomes[0].Subcontracted[3] != 500 {
		t.Fatalf("subcontracted = %v", incomes[0].Subcontracted)
	}

	amortizations, err := repo.ListAmortizations(ctx)
	if err != nil || len(amortizations) != 1 {
		t.Fatalf("ListAmortizations = %d, err %v", len(amortizations), err)
	}
	if amortizations[0].AnnualValues[2024] != 950 {
		t.Fatalf("amortization = %+v", amortizations[0])
	}

	// Replacing again with an empty snapshot clears the mirror.
	if err := repo.ReplaceReferenceData(ctx, core.Snapshot{}); err != nil {
		t.Fatalf("ReplaceReferenceData: %v", err)
	}
	vehicles, _ = repo.ListVehicles(ctx)
	if len(vehicles) != 0 {
		t.Fatalf("mirror must be cleared, got %d vehicles", len(vehicles))
	}
}
