package core

import "sort"

// Warnings collects everything the pipeline skipped or defaulted while
// computing a report. Nothing in here aborts a computation; the caller
// decides what to surface to the user.
type Warnings struct {
	Normalize            NormalizeStats `json:"normalize"`
	UnclassifiedAccounts []string       `json:"unclassifiedAccounts,omitempty"`
	InvalidVehicles      []string       `json:"invalidVehicles,omitempty"`
	DefaultedDates       []string       `json:"defaultedDates,omitempty"`
}

// Report is the full analysis output for one year: per-vehicle metrics,
// fleet totals and the reconciliation remainders.
type Report struct {
	Year     int              `json:"year"`
	Vehicles []VehicleMetrics `json:"vehicles"`
	Fleet    FleetTotals      `json:"fleet"`

	Pools                CostPools `json:"pools"`
	IndirectAmortization float64   `json:"indirectAmortization"`

	Unallocated             CostPools `json:"unallocated"`
	UnallocatedAmortization float64   `json:"unallocatedAmortization"`
	OrphanedImputed         float64   `json:"orphanedImputed"`
	OrphanedDistributions   []string  `json:"orphanedDistributions,omitempty"`

	Warnings Warnings `json:"warnings"`
}

// Analyze runs the whole pipeline over an already-fetched snapshot:
// normalize, classify, resolve activity, allocate, compute
// profitability. Pure and idempotent: identical snapshots produce
// identical reports, which is what lets the outer layer cache them.
func Analyze(s Snapshot, year int) Report {
	report := Report{Year: year}

	items, stats := NormalizeLedger(s.Ledger)
	report.Warnings.Normalize = stats

	table := NewClassificationTable(s.Classifications)
	seenUnclassified := map[string]bool{}
	var costs []ClassifiedCost
	for _, item := range items {
		if item.Kind != ItemExpense || item.Year != year {
			continue
		}
		c := table.Classify(item)
		if !c.Classified && !seenUnclassified[c.AccountCode] {
			seenUnclassified[c.AccountCode] = true
			report.Warnings.UnclassifiedAccounts = append(report.Warnings.UnclassifiedAccounts, c.AccountCode)
		}
		costs = append(costs, c)
	}

	var fleet []ActiveVehicle
	for _, v := range s.Vehicles {
		if err := v.Validate(); err != nil {
			report.Warnings.InvalidVehicles = append(report.Warnings.InvalidVehicles, v.LicensePlate)
			continue
		}
		act := ResolveActivity(v, year)
		if act.DateDefaulted {
			report.Warnings.DefaultedDates = append(report.Warnings.DefaultedDates, v.LicensePlate)
		}
		if !act.Active {
			continue
		}
		fleet = append(fleet, ActiveVehicle{Vehicle: v, Activity: act})
	}

	alloc := Allocate(year, costs, fleet, IndirectAmortizationTotal(s.Amortizations, year))
	report.Pools = alloc.Pools
	report.IndirectAmortization = alloc.IndirectAmortization
	report.Unallocated = alloc.Unallocated
	report.UnallocatedAmortization = alloc.UnallocatedAmortization
	report.OrphanedImputed = alloc.OrphanedImputed
	report.OrphanedDistributions = alloc.OrphanedDistributions

	report.Vehicles, report.Fleet = ComputeMetrics(alloc, s.Incomes)
	return report
}

// CostSummary is the company-level view of one year: every classified
// expense bucketed by cost center and nature, regardless of its
// distribution target, against the ledger's revenue total.
type CostSummary struct {
	Year          int       `json:"year"`
	Pools         CostPools `json:"pools"`
	TotalDirect   float64   `json:"totalDirect"`
	TotalIndirect float64   `json:"totalIndirect"`
	TotalFixed    float64   `json:"totalFixed"`
	TotalVariable float64   `json:"totalVariable"`
	Total         float64   `json:"total"`
	Income        float64   `json:"income"`
	Profit        float64   `json:"profit"`
}

// SummarizeCosts classifies the year's ledger and rolls it up to the
// company level.
func SummarizeCosts(s Snapshot, year int) CostSummary {
	sum := CostSummary{Year: year}

	items, _ := NormalizeLedger(s.Ledger)
	table := NewClassificationTable(s.Classifications)
	for _, item := range items {
		if item.Year != year {
			continue
		}
		if item.Kind == ItemRevenue {
			sum.Income += item.Amount
			continue
		}
		c := table.Classify(item)
		switch {
		case c.CostCenter == CostCenterDirect && c.Nature == NatureFixed:
			sum.Pools.DirectFixed += c.Amount
		case c.CostCenter == CostCenterDirect && c.Nature == NatureVariable:
			sum.Pools.DirectVariable += c.Amount
		case c.CostCenter == CostCenterIndirect && c.Nature == NatureVariable:
			sum.Pools.IndirectVariable += c.Amount
		default:
			sum.Pools.IndirectFixed += c.Amount
		}
	}

	sum.TotalDirect = sum.Pools.DirectFixed + sum.Pools.DirectVariable
	sum.TotalIndirect = sum.Pools.IndirectFixed + sum.Pools.IndirectVariable
	sum.TotalFixed = sum.Pools.DirectFixed + sum.Pools.IndirectFixed
	sum.TotalVariable = sum.Pools.DirectVariable + sum.Pools.IndirectVariable
	sum.Total = sum.Pools.Total()
	sum.Profit = sum.Income - sum.Total
	return sum
}

// IncomeSummary splits a year's revenue between the own fleet and
// subcontracted work.
type IncomeSummary struct {
	Year          int     `json:"year"`
	Own           float64 `json:"own"`
	Subcontracted float64 `json:"subcontracted"`
	Total         float64 `json:"total"`
}

// SummarizeIncome totals the monthly income records for a year.
func SummarizeIncome(s Snapshot, year int) IncomeSummary {
	sum := IncomeSummary{Year: year}
	yearly, ok := incomeForYear(s.Incomes, year)
	if !ok {
		return sum
	}
	for _, rec := range yearly.OwnFleet {
		sum.Own += rec.Income.Total()
	}
	sum.Subcontracted = yearly.Subcontracted.Total()
	sum.Total = sum.Own + sum.Subcontracted
	return sum
}

// AvailableYears lists the years with income or profit-and-loss data,
// newest first. Placeholder years (2000 and earlier) are dropped.
func AvailableYears(s Snapshot) []int {
	seen := map[int]bool{}
	for _, y := range s.Incomes {
		seen[y.Year] = true
	}
	for _, row := range s.Ledger {
		if row.DocumentType == DocPyG {
			seen[row.Year] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		if y > 2000 {
			years = append(years, y)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}
