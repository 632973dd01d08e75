package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"flotas/internal/core"
	"flotas/internal/sheets"
	"flotas/internal/sheets/memory"
)

// countingReader counts ledger fetches so tests can assert on caching.
type countingReader struct {
	sheets.SnapshotReader
	fetches int64
}

func (r *countingReader) ListLedger(ctx context.Context) ([]core.LedgerRow, error) {
	atomic.AddInt64(&r.fetches, 1)
	return r.SnapshotReader.ListLedger(ctx)
}

type failingReader struct {
	sheets.SnapshotReader
}

func (r failingReader) ListVehicles(context.Context) ([]core.Vehicle, error) {
	return nil, errors.New("spreadsheet unavailable")
}

func testAnalysisService(t *testing.T) (*AnalysisService, *countingReader) {
	t.Helper()
	reader := &countingReader{SnapshotReader: memory.NewDemo()}
	svc := NewAnalysisService(reader, nil, 16, time.Minute)
	t.Cleanup(func() { svc.Close() })
	return svc, reader
}

func TestAnalysisService_Report(t *testing.T) {
	svc, _ := testAnalysisService(t)
	ctx := context.Background()

	report, err := svc.Report(ctx, 2024)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Year != 2024 {
		t.Fatalf("year = %d", report.Year)
	}
	if len(report.Vehicles) != 2 {
		t.Fatalf("got %d vehicles, want 2", len(report.Vehicles))
	}
	if len(report.Warnings.UnclassifiedAccounts) != 0 {
		t.Fatalf("demo data must be fully classified, got %v", report.Warnings.UnclassifiedAccounts)
	}
	if report.Fleet.Income <= 0 {
		t.Fatalf("fleet income = %v", report.Fleet.Income)
	}
}

func TestAnalysisService_ReportCaching(t *testing.T) {
	svc, reader := testAnalysisService(t)
	ctx := context.Background()

	first, err := svc.Report(ctx, 2024)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	second, err := svc.Report(ctx, 2024)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if atomic.LoadInt64(&reader.fetches) != 1 {
		t.Fatalf("fetches = %d, want 1 (second report from cache)", reader.fetches)
	}
	if first.Fleet.Income != second.Fleet.Income {
		t.Fatal("cached report differs from first")
	}

	// Another year reuses the cached snapshot.
	if _, err := svc.Report(ctx, 2023); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if atomic.LoadInt64(&reader.fetches) != 1 {
		t.Fatalf("fetches = %d, want 1", reader.fetches)
	}

	svc.Invalidate(ctx)
	if _, err := svc.Report(ctx, 2024); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if atomic.LoadInt64(&reader.fetches) != 2 {
		t.Fatalf("fetches = %d, want 2 after invalidation", reader.fetches)
	}
}

func TestAnalysisService_ReaderFailure(t *testing.T) {
	svc := NewAnalysisService(failingReader{memory.NewDemo()}, nil, 16, time.Minute)
	defer svc.Close()

	if _, err := svc.Report(context.Background(), 2024); err == nil {
		t.Fatal("reader failure must surface")
	}
}

func TestAnalysisService_Summaries(t *testing.T) {
	svc, _ := testAnalysisService(t)
	ctx := context.Background()

	costs, err := svc.Costs(ctx, 2024)
	if err != nil {
		t.Fatalf("Costs: %v", err)
	}
	if costs.Total <= 0 || costs.Income != 185000 {
		t.Fatalf("costs = %+v", costs)
	}

	income, err := svc.Income(ctx, 2024)
	if err != nil {
		t.Fatalf("Income: %v", err)
	}
	if income.Own <= 0 || income.Subcontracted != 5600 {
		t.Fatalf("income = %+v", income)
	}

	years, err := svc.Years(ctx)
	if err != nil {
		t.Fatalf("Years: %v", err)
	}
	if len(years) != 1 || years[0] != 2024 {
		t.Fatalf("years = %v", years)
	}

	vehicles, err := svc.Vehicles(ctx)
	if err != nil {
		t.Fatalf("Vehicles: %v", err)
	}
	if len(vehicles) != 2 {
		t.Fatalf("got %d vehicles, want 2", len(vehicles))
	}
}
