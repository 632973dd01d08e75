package core

import "strings"

// genericDistributions are the shared-cost buckets a classification may
// target besides a concrete license plate. These come from the store as
// free text; anything outside this set is treated as a vehicle target.
var genericDistributions = map[string]bool{
	"":               true,
	"general":        true,
	"otras empresas": true,
	"amortización":   true,
	"amortizacion":   true,
}

// IsGenericDistribution reports whether the distribution target is a
// shared bucket rather than a specific vehicle.
func IsGenericDistribution(s string) bool {
	return genericDistributions[strings.ToLower(strings.TrimSpace(s))]
}

// CostPools holds the four shared cost buckets by cost center and
// nature.
type CostPools struct {
	DirectFixed      float64 `json:"directFixed"`
	DirectVariable   float64 `json:"directVariable"`
	IndirectFixed    float64 `json:"indirectFixed"`
	IndirectVariable float64 `json:"indirectVariable"`
}

// Total sums the four pools.
func (p CostPools) Total() float64 {
	return p.DirectFixed + p.DirectVariable + p.IndirectFixed + p.IndirectVariable
}

// ActiveVehicle pairs a vehicle with its resolved activity for the
// year under study.
type ActiveVehicle struct {
	Vehicle
	Activity
}

// VehicleAllocation is the cost side of a vehicle's year: shares of
// every shared pool plus directly imputed costs and amortization.
type VehicleAllocation struct {
	LicensePlate        string  `json:"licensePlate"`
	AssignedNumber      int     `json:"assignedNumber"`
	MonthsActive        int     `json:"monthsActive"`
	TimeCoefficient     float64 `json:"timeCoefficient"`
	DistanceCoefficient float64 `json:"distanceCoefficient"`
	Kms                 float64 `json:"kms"`

	DirectFixedShare      float64 `json:"directFixedShare"`
	DirectVariableShare   float64 `json:"directVariableShare"`
	IndirectFixedShare    float64 `json:"indirectFixedShare"`
	IndirectVariableShare float64 `json:"indirectVariableShare"`

	ImputedFixed    float64 `json:"imputedFixed"`
	ImputedVariable float64 `json:"imputedVariable"`

	OwnAmortization           float64 `json:"ownAmortization"`
	IndirectAmortizationShare float64 `json:"indirectAmortizationShare"`

	TotalCost float64 `json:"totalCost"`
}

// AllocationResult is the outcome of apportioning one year's classified
// costs across the active fleet. Pools that could not be distributed
// (zero denominators) and imputed amounts whose target vehicle does not
// exist are reported explicitly so fleet totals still reconcile against
// the classified cost total.
type AllocationResult struct {
	Year                 int                 `json:"year"`
	Vehicles             []VehicleAllocation `json:"vehicles"`
	Pools                CostPools           `json:"pools"`
	IndirectAmortization float64             `json:"indirectAmortization"`

	TotalTimeCoefficient float64 `json:"totalTimeCoefficient"`
	TotalKms             float64 `json:"totalKms"`

	Unallocated             CostPools `json:"unallocated"`
	UnallocatedAmortization float64   `json:"unallocatedAmortization"`
	OrphanedImputed         float64   `json:"orphanedImputed"`
	OrphanedDistributions   []string  `json:"orphanedDistributions,omitempty"`
}

// IndirectAmortizationTotal sums the year's amortization for accounts
// not tied to the fleet itself (offices, software, ...). The explicit
// annual value for the year wins; annualAmount is the fallback.
func IndirectAmortizationTotal(accounts []AmortizationAccount, year int) float64 {
	var total float64
	for _, a := range accounts {
		if a.IsFleetRelated {
			continue
		}
		if v, ok := a.AnnualValues[year]; ok && v != 0 {
			total += v
			continue
		}
		total += a.AnnualAmount
	}
	return total
}

// Allocate apportions the year's classified costs across the active
// fleet. Fixed pools are shared by time coefficient, variable pools by
// kilometers; both use the fleet-wide sum as denominator so per-pool
// shares conserve the pool total. Vehicle-targeted entries bypass the
// pools and land on their vehicle directly.
func Allocate(year int, costs []ClassifiedCost, fleet []ActiveVehicle, indirectAmortization float64) AllocationResult {
	res := AllocationResult{Year: year, IndirectAmortization: indirectAmortization}

	plateIndex := make(map[string]int, len(fleet))
	for i, v := range fleet {
		plateIndex[NormalizePlate(v.LicensePlate)] = i
	}

	// Partition: generic entries feed the four pools, vehicle-targeted
	// entries are imputed. Targets that match no active vehicle are a
	// known reconciliation gap in the source data; surfaced, not fixed.
	imputedFixed := make([]float64, len(fleet))
	imputedVariable := make([]float64, len(fleet))
	orphaned := map[string]bool{}
	for _, c := range costs {
		if c.Year != year {
			continue
		}
		if IsGenericDistribution(c.Distribution) {
			switch {
			case c.CostCenter == CostCenterDirect && c.Nature == NatureFixed:
				res.Pools.DirectFixed += c.Amount
			case c.CostCenter == CostCenterDirect && c.Nature == NatureVariable:
				res.Pools.DirectVariable += c.Amount
			case c.CostCenter == CostCenterIndirect && c.Nature == NatureVariable:
				res.Pools.IndirectVariable += c.Amount
			default:
				res.Pools.IndirectFixed += c.Amount
			}
			continue
		}
		idx, ok := plateIndex[NormalizePlate(c.Distribution)]
		if !ok {
			res.OrphanedImputed += c.Amount
			if !orphaned[c.Distribution] {
				orphaned[c.Distribution] = true
				res.OrphanedDistributions = append(res.OrphanedDistributions, c.Distribution)
			}
			continue
		}
		if c.Nature == NatureVariable {
			imputedVariable[idx] += c.Amount
		} else {
			imputedFixed[idx] += c.Amount
		}
	}

	for _, v := range fleet {
		res.TotalTimeCoefficient += v.TimeCoefficient
		res.TotalKms += v.Kms
	}

	// Pools with a zero denominator cannot be distributed; they are
	// reported as unallocated instead of silently dropped.
	if res.TotalTimeCoefficient == 0 {
		res.Unallocated.DirectFixed = res.Pools.DirectFixed
		res.Unallocated.IndirectFixed = res.Pools.IndirectFixed
		res.UnallocatedAmortization = indirectAmortization
	}
	if res.TotalKms == 0 {
		res.Unallocated.DirectVariable = res.Pools.DirectVariable
		res.Unallocated.IndirectVariable = res.Pools.IndirectVariable
	}

	res.Vehicles = make([]VehicleAllocation, 0, len(fleet))
	for i, v := range fleet {
		a := VehicleAllocation{
			LicensePlate:    v.LicensePlate,
			AssignedNumber:  v.AssignedNumber,
			MonthsActive:    v.MonthsActive,
			TimeCoefficient: v.TimeCoefficient,
			Kms:             v.Kms,
			ImputedFixed:    imputedFixed[i],
			ImputedVariable: imputedVariable[i],
			OwnAmortization: v.AnnualAmortization * v.TimeCoefficient,
		}
		if res.TotalTimeCoefficient > 0 {
			timeShare := v.TimeCoefficient / res.TotalTimeCoefficient
			a.DirectFixedShare = res.Pools.DirectFixed * timeShare
			a.IndirectFixedShare = res.Pools.IndirectFixed * timeShare
			a.IndirectAmortizationShare = indirectAmortization * timeShare
		}
		if res.TotalKms > 0 {
			a.DistanceCoefficient = v.Kms / res.TotalKms
			a.DirectVariableShare = res.Pools.DirectVariable * a.DistanceCoefficient
			a.IndirectVariableShare = res.Pools.IndirectVariable * a.DistanceCoefficient
		}
		a.TotalCost = a.DirectFixedShare + a.DirectVariableShare +
			a.IndirectFixedShare + a.IndirectVariableShare +
			a.ImputedFixed + a.ImputedVariable +
			a.OwnAmortization + a.IndirectAmortizationShare
		res.Vehicles = append(res.Vehicles, a)
	}
	return res
}
