package core

// VehicleMetrics extends a vehicle's cost allocation with the income
// side: profit, contribution margin and break-even revenue.
type VehicleMetrics struct {
	VehicleAllocation

	Income            float64 `json:"income"`
	TotalFixedCost    float64 `json:"totalFixedCost"`
	TotalVariableCost float64 `json:"totalVariableCost"`
	Profit            float64 `json:"profit"`
	ContributionRatio float64 `json:"contributionRatio"`
	BreakEvenRevenue  float64 `json:"breakEvenRevenue"`
	CostPerKm         float64 `json:"costPerKm"`
}

// FleetTotals aggregates per-vehicle metrics; break-even is recomputed
// from the fleet-wide sums rather than summed.
type FleetTotals struct {
	Vehicles          int     `json:"vehicles"`
	Kms               float64 `json:"kms"`
	TotalCost         float64 `json:"totalCost"`
	TotalFixedCost    float64 `json:"totalFixedCost"`
	TotalVariableCost float64 `json:"totalVariableCost"`
	Income            float64 `json:"income"`
	Profit            float64 `json:"profit"`
	CostPerKm         float64 `json:"costPerKm"`
	ContributionRatio float64 `json:"contributionRatio"`
	BreakEvenRevenue  float64 `json:"breakEvenRevenue"`
}

// MatchVehicleIncome finds the income record for a license plate.
// Records are matched by normalized plate against the licensePlate
// field first, then the vehicleId field, then the generic id field;
// the first hit in that priority order wins, so duplicate plates never
// raise.
func MatchVehicleIncome(records []VehicleIncome, plate string) (VehicleIncome, bool) {
	want := NormalizePlate(plate)
	if want == "" {
		return VehicleIncome{}, false
	}
	for _, field := range []func(VehicleIncome) string{
		func(r VehicleIncome) string { return r.LicensePlate },
		func(r VehicleIncome) string { return r.VehicleID },
		func(r VehicleIncome) string { return r.ID },
	} {
		for _, r := range records {
			if got := NormalizePlate(field(r)); got != "" && got == want {
				return r, true
			}
		}
	}
	return VehicleIncome{}, false
}

// incomeForYear finds the YearlyIncome entry for a year, if any.
func incomeForYear(incomes []YearlyIncome, year int) (YearlyIncome, bool) {
	for _, y := range incomes {
		if y.Year == year {
			return y, true
		}
	}
	return YearlyIncome{}, false
}

// ComputeMetrics joins the allocation result with per-vehicle income
// and derives profitability. Break-even is 0 when the contribution
// ratio is not positive: a sentinel for "unreachable", never NaN or
// infinity.
func ComputeMetrics(alloc AllocationResult, incomes []YearlyIncome) ([]VehicleMetrics, FleetTotals) {
	yearly, _ := incomeForYear(incomes, alloc.Year)

	metrics := make([]VehicleMetrics, 0, len(alloc.Vehicles))
	var fleet FleetTotals
	for _, a := range alloc.Vehicles {
		m := VehicleMetrics{VehicleAllocation: a}

		if rec, ok := MatchVehicleIncome(yearly.OwnFleet, a.LicensePlate); ok {
			m.Income = rec.Income.Total()
		}

		m.TotalFixedCost = a.DirectFixedShare + a.IndirectFixedShare +
			a.ImputedFixed + a.OwnAmortization + a.IndirectAmortizationShare
		m.TotalVariableCost = a.DirectVariableShare + a.IndirectVariableShare + a.ImputedVariable
		m.Profit = m.Income - a.TotalCost

		if m.Income > 0 {
			m.ContributionRatio = (m.Income - m.TotalVariableCost) / m.Income
		}
		if m.ContributionRatio > 0 {
			m.BreakEvenRevenue = m.TotalFixedCost / m.ContributionRatio
		}
		if a.Kms > 0 {
			m.CostPerKm = a.TotalCost / a.Kms
		}
		metrics = append(metrics, m)

		fleet.Vehicles++
		fleet.Kms += a.Kms
		fleet.TotalCost += a.TotalCost
		fleet.TotalFixedCost += m.TotalFixedCost
		fleet.TotalVariableCost += m.TotalVariableCost
		fleet.Income += m.Income
		fleet.Profit += m.Profit
	}

	if fleet.Kms > 0 {
		fleet.CostPerKm = fleet.TotalCost / fleet.Kms
	}
	if fleet.Income > 0 {
		fleet.ContributionRatio = (fleet.Income - fleet.TotalVariableCost) / fleet.Income
	}
	if fleet.ContributionRatio > 0 {
		fleet.BreakEvenRevenue = fleet.TotalFixedCost / fleet.ContributionRatio
	}
	return metrics, fleet
}
