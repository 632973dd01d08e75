package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// Document types carried by ledger rows.
	DocBalance DocumentType = "Balance"
	DocPyG     DocumentType = "PyG"

	CostCenterDirect   CostCenter = "DIRECT"
	CostCenterIndirect CostCenter = "INDIRECT"

	NatureFixed    Nature = "FIXED"
	NatureVariable Nature = "VARIABLE"

	BasisTime     DistributionBasis = "TIME"
	BasisDistance DistributionBasis = "DISTANCE"

	// DistributionGeneral is the generic shared-cost bucket. Entries
	// targeting it are apportioned across the active fleet instead of
	// being imputed to a single vehicle.
	DistributionGeneral = "General"
)

type (
	DocumentType      string
	CostCenter        string
	Nature            string
	DistributionBasis string

	// LedgerRow is a raw row from the financial store. Amount may be a
	// number or a decimal string in European format; the normalizer
	// deals with both.
	LedgerRow struct {
		Year         int          `json:"year"`
		Month        int          `json:"month"` // 0 = annual, 1-12 = monthly
		DocumentType DocumentType `json:"documentType"`
		Concept      string       `json:"concept"`
		Amount       any          `json:"amount"`
	}

	ItemKind string

	// LineItem is a normalized profit-and-loss entry tied to a real
	// account code. Amount is the absolute value; the sign convention
	// is captured by Kind.
	LineItem struct {
		Year        int      `json:"year"`
		Month       int      `json:"month"`
		AccountCode string   `json:"accountCode"`
		Concept     string   `json:"concept"`
		Amount      float64  `json:"amount"`
		Kind        ItemKind `json:"kind"`
	}

	// Classification maps an account to its cost treatment. CostType
	// holds the stored key, which may be a bare account code or a
	// legacy "code + description" string.
	Classification struct {
		CostType     string            `json:"costType"`
		CostCenter   CostCenter        `json:"costCenter"`
		Nature       Nature            `json:"nature"`
		Distribution string            `json:"distribution"`
		Basis        DistributionBasis `json:"distributionBasis"`
	}

	Vehicle struct {
		ID                 string          `json:"id"`
		LicensePlate       string          `json:"licensePlate"`
		AssignedNumber     int             `json:"assignedNumber"`
		AcquisitionDate    string          `json:"acquisitionDate"` // YYYY-MM-DD
		SaleDate           string          `json:"saleDate,omitempty"`
		AcquisitionValue   float64         `json:"acquisitionValue"`
		SaleValue          float64         `json:"saleValue,omitempty"`
		AnnualAmortization float64         `json:"annualAmortization"`
		AnnualKms          map[int]float64 `json:"annualKms"`
	}

	AmortizationAccount struct {
		ID             string          `json:"id"`
		Name           string          `json:"name"`
		IsFleetRelated bool            `json:"isFleetRelated"`
		AnnualAmount   float64         `json:"annualAmount"`
		AnnualValues   map[int]float64 `json:"annualValues"`
	}

	// MonthlyAmounts maps month (1-12) to an amount.
	MonthlyAmounts map[int]float64

	VehicleIncome struct {
		ID           string         `json:"id"`
		VehicleID    string         `json:"vehicleId,omitempty"`
		LicensePlate string         `json:"licensePlate"`
		Income       MonthlyAmounts `json:"income"`
	}

	YearlyIncome struct {
		Year          int             `json:"year"`
		OwnFleet      []VehicleIncome `json:"ownFleet"`
		Subcontracted MonthlyAmounts  `json:"subcontracted"`
	}

	// Snapshot is the complete set of collections the engine consumes.
	// All fetching happens outside; the engine never does I/O.
	Snapshot struct {
		Ledger          []LedgerRow
		Classifications []Classification
		Vehicles        []Vehicle
		Incomes         []YearlyIncome
		Amortizations   []AmortizationAccount
	}
)

const (
	ItemExpense ItemKind = "expense"
	ItemRevenue ItemKind = "revenue"
)

var (
	ErrInvalidYear  = errors.New("invalid year")
	ErrEmptyPlate   = errors.New("empty license plate")
	ErrSaleBeforeAq = errors.New("sale date before acquisition date")
)

// Validate checks the vehicle's natural key and ownership interval.
func (v Vehicle) Validate() error {
	if strings.TrimSpace(v.LicensePlate) == "" {
		return ErrEmptyPlate
	}
	if v.SaleDate != "" {
		acq, okA := ParseFlexibleDate(v.AcquisitionDate)
		sale, okS := ParseFlexibleDate(v.SaleDate)
		if okA && okS && sale.Before(acq) {
			return ErrSaleBeforeAq
		}
	}
	return nil
}

// Total sums every monthly value.
func (m MonthlyAmounts) Total() float64 {
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum
}

// NormalizePlate makes license plates comparable: uppercase with all
// whitespace removed.
func NormalizePlate(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), "")
}

// ParseFlexibleDate parses the date formats found in the store:
// YYYY-MM-DD, DD-MM-YYYY and the slash variants. The boolean reports
// whether the input was understood.
func ParseFlexibleDate(s string) (time.Time, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "/", "-")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "2006-1-2", "02-01-2006", "2-1-2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseCostCenter accepts canonical values and the legacy Spanish
// spellings still stored in older classification rows.
func ParseCostCenter(s string) (CostCenter, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DIRECT", "DIRECTO":
		return CostCenterDirect, true
	case "INDIRECT", "INDIRECTO":
		return CostCenterIndirect, true
	}
	return "", false
}

// ParseNature accepts canonical values and the legacy Spanish spellings.
func ParseNature(s string) (Nature, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FIXED", "FIJO":
		return NatureFixed, true
	case "VARIABLE":
		return NatureVariable, true
	}
	return "", false
}

// ParseBasis accepts canonical values and the legacy Spanish spellings
// ("Kilómetros"/"Meses").
func ParseBasis(s string) (DistributionBasis, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DISTANCE", "KILÓMETROS", "KILOMETROS", "KM":
		return BasisDistance, true
	case "TIME", "MESES":
		return BasisTime, true
	}
	return "", false
}
