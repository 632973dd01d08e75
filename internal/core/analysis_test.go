package core

import (
	"reflect"
	"testing"
)

// snapshotFixture builds a small but complete 2024 dataset: two active
// vehicles, a mixed ledger with revenue, subtotal and malformed rows,
// and classifications covering every pool.
func snapshotFixture() Snapshot {
	return Snapshot{
		Ledger: []LedgerRow{
			{Year: 2024, Month: 0, DocumentType: DocPyG, Concept: "76200000001 INGRESOS SERVICIOS", Amount: 5000.0},
			{Year: 2024, Month: 0, DocumentType: DocPyG, Concept: "60100000000 COMPRAS COMBUSTIBLE", Amount: "-4.000,00"},
			{Year: 2024, Month: 0, DocumentType: DocPyG, Concept: "62500000000 SEGUROS", Amount: -2400.0},
			{Year: 2024, Month: 0, DocumentType: DocPyG, Concept: "62600000004 COMISIONES BANCARIAS", Amount: -600.0},
			{Year: 2024, Month: 0, DocumentType: DocPyG, Concept: "99900000000 SIN CLASIFICAR", Amount: -100.0},
			{Year: 2024, Month: 0, DocumentType: DocPyG, Concept: "ABC Total", Amount: -9999.0},
			{Year: 2024, Month: 0, DocumentType: DocBalance, Concept: "21700000000 EQUIPOS", Amount: -5555.0},
			{Year: 2024, Month: 0, DocumentType: DocPyG, Concept: "62900000000 VARIOS", Amount: "not-a-number"},
			{Year: 2023, Month: 0, DocumentType: DocPyG, Concept: "60100000000 COMPRAS COMBUSTIBLE", Amount: -3000.0},
		},
		Classifications: []Classification{
			{CostType: "60100000000 COMPRAS COMBUSTIBLE", CostCenter: CostCenterDirect, Nature: NatureVariable, Distribution: "General", Basis: BasisDistance},
			{CostType: "62500000000 SEGUROS", CostCenter: CostCenterDirect, Nature: NatureFixed, Distribution: "General", Basis: BasisTime},
			{CostType: "62600000004 COMISIONES BANCARIAS", CostCenter: CostCenterIndirect, Nature: NatureFixed, Distribution: "General", Basis: BasisTime},
		},
		Vehicles: []Vehicle{
			{LicensePlate: "1111AAA", AcquisitionDate: "2020-01-15", AnnualAmortization: 1200, AnnualKms: map[int]float64{2024: 30000}},
			{LicensePlate: "2222BBB", AcquisitionDate: "2024-07-01", AnnualAmortization: 2400, AnnualKms: map[int]float64{2024: 10000}},
			{LicensePlate: "3333CCC", AcquisitionDate: "2010-01-01", SaleDate: "2022-06-30"}, // sold before 2024
		},
		Incomes: []YearlyIncome{
			{
				Year: 2024,
				OwnFleet: []VehicleIncome{
					{LicensePlate: "1111 AAA", Income: MonthlyAmounts{1: 3000, 2: 3000, 3: 3000}},
					{LicensePlate: "2222BBB", Income: MonthlyAmounts{7: 2000, 8: 2000}},
				},
				Subcontracted: MonthlyAmounts{1: 700, 2: 300},
			},
		},
		Amortizations: []AmortizationAccount{
			{Name: "Oficinas", IsFleetRelated: false, AnnualValues: map[int]float64{2024: 900}},
			{Name: "Flota", IsFleetRelated: true, AnnualValues: map[int]float64{2024: 77777}},
		},
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	report := Analyze(snapshotFixture(), 2024)

	if len(report.Vehicles) != 2 {
		t.Fatalf("active vehicles = %d, want 2", len(report.Vehicles))
	}

	// Pools: fuel 4000 variable direct, insurance 2400 fixed direct,
	// commissions 600 indirect fixed, unclassified 100 defaults to
	// indirect fixed.
	if !approx(report.Pools.DirectVariable, 4000) {
		t.Fatalf("DirectVariable = %v", report.Pools.DirectVariable)
	}
	if !approx(report.Pools.DirectFixed, 2400) {
		t.Fatalf("DirectFixed = %v", report.Pools.DirectFixed)
	}
	if !approx(report.Pools.IndirectFixed, 700) {
		t.Fatalf("IndirectFixed = %v", report.Pools.IndirectFixed)
	}
	if !approx(report.IndirectAmortization, 900) {
		t.Fatalf("IndirectAmortization = %v", report.IndirectAmortization)
	}

	// Vehicle A: full year, 30000 of 40000 km.
	a := report.Vehicles[0]
	if a.LicensePlate != "1111AAA" {
		t.Fatalf("unexpected vehicle order: %s", a.LicensePlate)
	}
	if !approx(a.TimeCoefficient, 1) || !approx(a.DistanceCoefficient, 0.75) {
		t.Fatalf("coefficients = %v/%v", a.TimeCoefficient, a.DistanceCoefficient)
	}
	if !approx(a.DirectVariableShare, 3000) {
		t.Fatalf("A DirectVariableShare = %v, want 3000", a.DirectVariableShare)
	}
	if !approx(a.OwnAmortization, 1200) {
		t.Fatalf("A OwnAmortization = %v, want 1200", a.OwnAmortization)
	}
	if !approx(report.Vehicles[0].TimeCoefficient+report.Vehicles[1].TimeCoefficient, 1.5) {
		t.Fatalf("fleet time coefficient sum mismatch")
	}

	// Conservation at report level: vehicle totals plus remainders
	// reconcile with classified costs plus amortization.
	var allocated float64
	for _, v := range report.Vehicles {
		allocated += v.TotalCost
	}
	var ownAmort float64
	for _, v := range report.Vehicles {
		ownAmort += v.OwnAmortization
	}
	classified := report.Pools.Total() + report.IndirectAmortization
	if !approx(allocated, classified+ownAmort) {
		t.Fatalf("allocated %v does not reconcile with classified %v + own amortization %v", allocated, classified, ownAmort)
	}

	if !approx(report.Fleet.Income, 13000) {
		t.Fatalf("fleet income = %v, want 13000", report.Fleet.Income)
	}

	// Warnings: the malformed-amount row falls to 0 and is then
	// sign-excluded, so only 999... shows up as unclassified.
	if len(report.Warnings.UnclassifiedAccounts) != 1 || report.Warnings.UnclassifiedAccounts[0] != "99900000000" {
		t.Fatalf("UnclassifiedAccounts = %v", report.Warnings.UnclassifiedAccounts)
	}
	if report.Warnings.Normalize.MalformedAmounts != 1 {
		t.Fatalf("MalformedAmounts = %d", report.Warnings.Normalize.MalformedAmounts)
	}
	if report.Warnings.Normalize.SignExcluded != 1 {
		t.Fatalf("SignExcluded = %d", report.Warnings.Normalize.SignExcluded)
	}
	if report.Warnings.Normalize.SubtotalRows != 1 {
		t.Fatalf("SubtotalRows = %d", report.Warnings.Normalize.SubtotalRows)
	}
}

func TestAnalyzeIdempotence(t *testing.T) {
	snap := snapshotFixture()
	first := Analyze(snap, 2024)
	second := Analyze(snap, 2024)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical snapshots must produce identical reports")
	}
}

func TestAnalyzeSubtotalNeverAllocated(t *testing.T) {
	report := Analyze(snapshotFixture(), 2024)
	total := report.Pools.Total()
	// The "ABC Total" row carries -9999; if it leaked into the pools
	// the classified total would show it.
	if total >= 9999 {
		t.Fatalf("subtotal row leaked into pools: total %v", total)
	}
}

func TestSummarizeCosts(t *testing.T) {
	sum := SummarizeCosts(snapshotFixture(), 2024)

	if !approx(sum.TotalDirect, 6400) {
		t.Fatalf("TotalDirect = %v, want 6400", sum.TotalDirect)
	}
	if !approx(sum.TotalIndirect, 700) {
		t.Fatalf("TotalIndirect = %v, want 700", sum.TotalIndirect)
	}
	if !approx(sum.TotalFixed, 3100) {
		t.Fatalf("TotalFixed = %v, want 3100", sum.TotalFixed)
	}
	if !approx(sum.TotalVariable, 4000) {
		t.Fatalf("TotalVariable = %v, want 4000", sum.TotalVariable)
	}
	if !approx(sum.Income, 5000) {
		t.Fatalf("Income = %v, want 5000 (the '7' account)", sum.Income)
	}
	if !approx(sum.Profit, 5000-7100) {
		t.Fatalf("Profit = %v", sum.Profit)
	}
}

func TestSummarizeIncome(t *testing.T) {
	sum := SummarizeIncome(snapshotFixture(), 2024)
	if !approx(sum.Own, 13000) {
		t.Fatalf("Own = %v, want 13000", sum.Own)
	}
	if !approx(sum.Subcontracted, 1000) {
		t.Fatalf("Subcontracted = %v, want 1000", sum.Subcontracted)
	}
	if !approx(sum.Total, 14000) {
		t.Fatalf("Total = %v, want 14000", sum.Total)
	}

	empty := SummarizeIncome(snapshotFixture(), 2019)
	if empty.Total != 0 {
		t.Fatalf("missing year must sum to 0, got %v", empty.Total)
	}
}

func TestAvailableYears(t *testing.T) {
	snap := snapshotFixture()
	snap.Incomes = append(snap.Incomes, YearlyIncome{Year: 2022}, YearlyIncome{Year: 1999})
	years := AvailableYears(snap)
	want := []int{2024, 2023, 2022}
	if !reflect.DeepEqual(years, want) {
		t.Fatalf("AvailableYears = %v, want %v", years, want)
	}
}
