package core

import (
	"math"
	"testing"
)

// approx compares floats with the relative tolerance the allocation
// invariants are specified against.
func approx(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff <= 1e-9*scale
}

func activeVehicle(plate string, coefTime, kms float64, amortization float64) ActiveVehicle {
	months := int(math.Round(coefTime * 12))
	return ActiveVehicle{
		Vehicle:  Vehicle{LicensePlate: plate, AnnualAmortization: amortization},
		Activity: Activity{Active: true, MonthsActive: months, TimeCoefficient: coefTime, Kms: kms},
	}
}

func TestAllocateVariablePoolByDistance(t *testing.T) {
	// Two vehicles, 1000 km and 3000 km, sharing a 4000 pool: the
	// shares must be 1000 and 3000.
	costs := []ClassifiedCost{
		{Year: 2024, Amount: 4000, CostCenter: CostCenterDirect, Nature: NatureVariable, Distribution: "General"},
	}
	fleet := []ActiveVehicle{
		activeVehicle("AAAA", 1, 1000, 0),
		activeVehicle("BBBB", 1, 3000, 0),
	}
	res := Allocate(2024, costs, fleet, 0)

	if !approx(res.Vehicles[0].DirectVariableShare, 1000) {
		t.Fatalf("share(A) = %v, want 1000", res.Vehicles[0].DirectVariableShare)
	}
	if !approx(res.Vehicles[1].DirectVariableShare, 3000) {
		t.Fatalf("share(B) = %v, want 3000", res.Vehicles[1].DirectVariableShare)
	}
}

func TestAllocateFixedPoolByTime(t *testing.T) {
	costs := []ClassifiedCost{
		{Year: 2024, Amount: 1800, CostCenter: CostCenterIndirect, Nature: NatureFixed, Distribution: "General"},
	}
	fleet := []ActiveVehicle{
		activeVehicle("AAAA", 1, 0, 0),   // full year
		activeVehicle("BBBB", 0.5, 0, 0), // half year
	}
	res := Allocate(2024, costs, fleet, 0)

	if !approx(res.Vehicles[0].IndirectFixedShare, 1200) {
		t.Fatalf("share(A) = %v, want 1200", res.Vehicles[0].IndirectFixedShare)
	}
	if !approx(res.Vehicles[1].IndirectFixedShare, 600) {
		t.Fatalf("share(B) = %v, want 600", res.Vehicles[1].IndirectFixedShare)
	}
}

func TestAllocateConservation(t *testing.T) {
	// Irregular coefficients and kilometers: every pool must still be
	// conserved across the fleet within relative tolerance.
	costs := []ClassifiedCost{
		{Year: 2024, Amount: 13577.31, CostCenter: CostCenterDirect, Nature: NatureFixed, Distribution: "General"},
		{Year: 2024, Amount: 99281.77, CostCenter: CostCenterDirect, Nature: NatureVariable, Distribution: "General"},
		{Year: 2024, Amount: 41234.09, CostCenter: CostCenterIndirect, Nature: NatureFixed, Distribution: "General"},
		{Year: 2024, Amount: 7777.77, CostCenter: CostCenterIndirect, Nature: NatureVariable, Distribution: "General"},
	}
	fleet := []ActiveVehicle{
		activeVehicle("AAAA", 1, 123456.7, 9000),
		activeVehicle("BBBB", 7.0/12, 98765.4, 8500),
		activeVehicle("CCCC", 1.0/12, 1024.5, 12000),
		activeVehicle("DDDD", 11.0/12, 55555.5, 7250),
	}
	const indirectAmort = 30303.03
	res := Allocate(2024, costs, fleet, indirectAmort)

	var df, dv, inf, inv, am float64
	for _, v := range res.Vehicles {
		df += v.DirectFixedShare
		dv += v.DirectVariableShare
		inf += v.IndirectFixedShare
		inv += v.IndirectVariableShare
		am += v.IndirectAmortizationShare
	}
	if !approx(df, 13577.31) {
		t.Fatalf("direct fixed not conserved: %v", df)
	}
	if !approx(dv, 99281.77) {
		t.Fatalf("direct variable not conserved: %v", dv)
	}
	if !approx(inf, 41234.09) {
		t.Fatalf("indirect fixed not conserved: %v", inf)
	}
	if !approx(inv, 7777.77) {
		t.Fatalf("indirect variable not conserved: %v", inv)
	}
	if !approx(am, indirectAmort) {
		t.Fatalf("indirect amortization not conserved: %v", am)
	}
}

func TestAllocateVehicleTargetedCosts(t *testing.T) {
	costs := []ClassifiedCost{
		{Year: 2024, Amount: 500, CostCenter: CostCenterDirect, Nature: NatureFixed, Distribution: "1234 ABC"},
		{Year: 2024, Amount: 250, CostCenter: CostCenterDirect, Nature: NatureVariable, Distribution: "1234ABC"},
		{Year: 2024, Amount: 1000, CostCenter: CostCenterDirect, Nature: NatureFixed, Distribution: "General"},
	}
	fleet := []ActiveVehicle{
		activeVehicle("1234ABC", 1, 1000, 0),
		activeVehicle("5678DEF", 1, 1000, 0),
	}
	res := Allocate(2024, costs, fleet, 0)

	// Imputed costs land on the target vehicle only, plate matching is
	// whitespace/case insensitive.
	if res.Vehicles[0].ImputedFixed != 500 || res.Vehicles[0].ImputedVariable != 250 {
		t.Fatalf("imputed = %v/%v, want 500/250", res.Vehicles[0].ImputedFixed, res.Vehicles[0].ImputedVariable)
	}
	if res.Vehicles[1].ImputedFixed != 0 || res.Vehicles[1].ImputedVariable != 0 {
		t.Fatalf("vehicle B must get no imputed costs")
	}
	// The generic pool is still split between both.
	if !approx(res.Vehicles[0].DirectFixedShare, 500) || !approx(res.Vehicles[1].DirectFixedShare, 500) {
		t.Fatalf("pool shares = %v/%v, want 500/500", res.Vehicles[0].DirectFixedShare, res.Vehicles[1].DirectFixedShare)
	}
	if res.Pools.DirectFixed != 1000 {
		t.Fatalf("imputed entries must not inflate the pool: %v", res.Pools.DirectFixed)
	}
}

func TestAllocateOrphanedDistribution(t *testing.T) {
	// A classification can name a plate that is not in the current
	// fleet; the amount drops out of vehicle totals but is surfaced.
	costs := []ClassifiedCost{
		{Year: 2024, Amount: 900, CostCenter: CostCenterDirect, Nature: NatureFixed, Distribution: "0000 ZZZ"},
	}
	fleet := []ActiveVehicle{activeVehicle("1234ABC", 1, 1000, 0)}
	res := Allocate(2024, costs, fleet, 0)

	if res.OrphanedImputed != 900 {
		t.Fatalf("OrphanedImputed = %v, want 900", res.OrphanedImputed)
	}
	if len(res.OrphanedDistributions) != 1 || res.OrphanedDistributions[0] != "0000 ZZZ" {
		t.Fatalf("OrphanedDistributions = %v", res.OrphanedDistributions)
	}
	if res.Vehicles[0].TotalCost != 0 {
		t.Fatalf("orphaned amount must not reach any vehicle: %v", res.Vehicles[0].TotalCost)
	}
}

func TestAllocateZeroDenominators(t *testing.T) {
	costs := []ClassifiedCost{
		{Year: 2024, Amount: 100, CostCenter: CostCenterDirect, Nature: NatureFixed, Distribution: "General"},
		{Year: 2024, Amount: 200, CostCenter: CostCenterDirect, Nature: NatureVariable, Distribution: "General"},
		{Year: 2024, Amount: 300, CostCenter: CostCenterIndirect, Nature: NatureFixed, Distribution: "General"},
		{Year: 2024, Amount: 400, CostCenter: CostCenterIndirect, Nature: NatureVariable, Distribution: "General"},
	}

	t.Run("no active vehicles", func(t *testing.T) {
		res := Allocate(2024, costs, nil, 50)
		if res.Unallocated.DirectFixed != 100 || res.Unallocated.IndirectFixed != 300 {
			t.Fatalf("fixed pools must be unallocated: %+v", res.Unallocated)
		}
		if res.Unallocated.DirectVariable != 200 || res.Unallocated.IndirectVariable != 400 {
			t.Fatalf("variable pools must be unallocated: %+v", res.Unallocated)
		}
		if res.UnallocatedAmortization != 50 {
			t.Fatalf("UnallocatedAmortization = %v, want 50", res.UnallocatedAmortization)
		}
	})

	t.Run("zero kilometers", func(t *testing.T) {
		fleet := []ActiveVehicle{activeVehicle("AAAA", 1, 0, 0)}
		res := Allocate(2024, costs, fleet, 0)
		if res.Unallocated.DirectVariable != 200 || res.Unallocated.IndirectVariable != 400 {
			t.Fatalf("variable pools must be unallocated: %+v", res.Unallocated)
		}
		if res.Unallocated.DirectFixed != 0 {
			t.Fatalf("fixed pools are allocatable: %+v", res.Unallocated)
		}
		if !approx(res.Vehicles[0].DirectFixedShare, 100) {
			t.Fatalf("fixed share = %v, want 100", res.Vehicles[0].DirectFixedShare)
		}
		if res.Vehicles[0].DirectVariableShare != 0 {
			t.Fatalf("variable share must be 0, got %v", res.Vehicles[0].DirectVariableShare)
		}
	})
}

func TestAllocateOwnAmortizationScaledByTime(t *testing.T) {
	fleet := []ActiveVehicle{activeVehicle("AAAA", 0.5, 0, 8000)}
	res := Allocate(2024, nil, fleet, 0)
	if !approx(res.Vehicles[0].OwnAmortization, 4000) {
		t.Fatalf("OwnAmortization = %v, want 4000", res.Vehicles[0].OwnAmortization)
	}
}

func TestIndirectAmortizationTotal(t *testing.T) {
	accounts := []AmortizationAccount{
		{Name: "Oficinas", IsFleetRelated: false, AnnualAmount: 1000, AnnualValues: map[int]float64{2024: 1100}},
		{Name: "Software", IsFleetRelated: false, AnnualAmount: 500}, // falls back to AnnualAmount
		{Name: "Flota autobuses", IsFleetRelated: true, AnnualAmount: 99999, AnnualValues: map[int]float64{2024: 99999}},
	}
	if got := IndirectAmortizationTotal(accounts, 2024); !approx(got, 1600) {
		t.Fatalf("IndirectAmortizationTotal = %v, want 1600", got)
	}
}

func TestIsGenericDistribution(t *testing.T) {
	for _, s := range []string{"", "General", "general", "otras empresas", "Amortización", "amortizacion"} {
		if !IsGenericDistribution(s) {
			t.Fatalf("%q must be generic", s)
		}
	}
	for _, s := range []string{"1234 ABC", "5678DEF"} {
		if IsGenericDistribution(s) {
			t.Fatalf("%q must not be generic", s)
		}
	}
}
