package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"flotas/internal/cache"
	"flotas/internal/core"
	"flotas/internal/log"
	"flotas/internal/sheets"
)

const snapshotKey = "snapshot"

// AnalysisService produces cost and break-even reports from the
// spreadsheet collections. Fetches are cached: the sheets are the slow
// part, the analysis itself is pure computation.
type AnalysisService struct {
	reader    sheets.SnapshotReader
	logger    *log.Logger
	snapshots *cache.LRUCache[core.Snapshot]
	reports   *cache.LRUCache[core.Report]
	caches    *cache.Manager
}

func NewAnalysisService(reader sheets.SnapshotReader, logger *log.Logger, cacheSize int, ttl time.Duration) *AnalysisService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &AnalysisService{
		reader:    reader,
		logger:    logger.WithComponent(log.ComponentAnalysis),
		snapshots: cache.NewLRUCache[core.Snapshot](1, ttl),
		reports:   cache.NewLRUCache[core.Report](cacheSize, ttl),
		caches:    cache.NewManager(),
	}
	s.caches.Register(s.snapshots)
	s.caches.Register(s.reports)
	s.caches.StartCleanup(ttl)
	return s
}

// Close stops the cache cleanup goroutine.
func (s *AnalysisService) Close() error {
	s.caches.Stop()
	return nil
}

// Report returns the full allocation and break-even report for a year.
func (s *AnalysisService) Report(ctx context.Context, year int) (core.Report, error) {
	key := fmt.Sprintf("analysis:%d", year)
	if report, ok := s.reports.Get(key); ok {
		s.logger.DebugContext(ctx, "Report served from cache", log.FieldYear, year, log.FieldCacheHit, true)
		return report, nil
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return core.Report{}, err
	}

	report := core.Analyze(snap, year)
	s.logWarnings(ctx, report)
	s.reports.Set(key, report)

	s.logger.InfoContext(ctx, "Analysis completed",
		log.FieldYear, year,
		log.FieldVehicles, len(report.Vehicles),
		log.FieldOperation, log.OpAnalyze)
	return report, nil
}

// Costs returns the per-bucket cost summary for a year.
func (s *AnalysisService) Costs(ctx context.Context, year int) (core.CostSummary, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return core.CostSummary{}, err
	}
	return core.SummarizeCosts(snap, year), nil
}

// Income returns own-fleet and subcontracted income for a year.
func (s *AnalysisService) Income(ctx context.Context, year int) (core.IncomeSummary, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return core.IncomeSummary{}, err
	}
	return core.SummarizeIncome(snap, year), nil
}

// Years returns the years with any recorded data, newest first.
func (s *AnalysisService) Years(ctx context.Context) ([]int, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return core.AvailableYears(snap), nil
}

// Vehicles returns the fleet roster.
func (s *AnalysisService) Vehicles(ctx context.Context) ([]core.Vehicle, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Vehicles, nil
}

// Invalidate drops all cached snapshots and reports. Called after an
// import so the next request sees the new rows.
func (s *AnalysisService) Invalidate(ctx context.Context) {
	s.snapshots.Delete(snapshotKey)
	removed := s.reports.DeletePrefix("analysis:")
	s.logger.InfoContext(ctx, "Analysis cache invalidated", "reports_removed", removed)
}

// snapshot fetches the five collections in parallel, or serves the
// cached copy.
func (s *AnalysisService) snapshot(ctx context.Context) (core.Snapshot, error) {
	if snap, ok := s.snapshots.Get(snapshotKey); ok {
		return snap, nil
	}

	var snap core.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if snap.Ledger, err = s.reader.ListLedger(gctx); err != nil {
			return fmt.Errorf("list ledger: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snap.Classifications, err = s.reader.ListClassifications(gctx); err != nil {
			return fmt.Errorf("list classifications: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snap.Vehicles, err = s.reader.ListVehicles(gctx); err != nil {
			return fmt.Errorf("list vehicles: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snap.Incomes, err = s.reader.ListIncome(gctx); err != nil {
			return fmt.Errorf("list income: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if snap.Amortizations, err = s.reader.ListAmortizations(gctx); err != nil {
			return fmt.Errorf("list amortizations: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.Snapshot{}, err
	}

	s.logger.InfoContext(ctx, "Snapshot fetched",
		log.FieldRows, len(snap.Ledger),
		log.FieldVehicles, len(snap.Vehicles),
		log.FieldOperation, log.OpFetch)

	s.snapshots.Set(snapshotKey, snap)
	return snap, nil
}

func (s *AnalysisService) logWarnings(ctx context.Context, report core.Report) {
	w := report.Warnings

	if len(w.UnclassifiedAccounts) > 0 {
		s.logger.WarnContext(ctx, "Accounts without classification fell back to defaults",
			log.FieldYear, report.Year,
			"accounts", w.UnclassifiedAccounts)
	}
	if len(w.InvalidVehicles) > 0 {
		s.logger.WarnContext(ctx, "Vehicles skipped for invalid data",
			log.FieldYear, report.Year,
			"plates", w.InvalidVehicles)
	}
	if len(w.DefaultedDates) > 0 {
		s.logger.WarnContext(ctx, "Unparseable vehicle dates defaulted",
			log.FieldYear, report.Year,
			"plates", w.DefaultedDates)
	}
	if w.Normalize.MalformedAmounts > 0 {
		s.logger.WarnContext(ctx, "Ledger rows with malformed amounts treated as zero",
			log.FieldYear, report.Year,
			"count", w.Normalize.MalformedAmounts)
	}
}
