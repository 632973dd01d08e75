package google

import (
	"fmt"
	"strconv"
	"strings"

	"flotas/internal/core"
)

var monthHeaders = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// parseLedger converts a FinancialData values matrix (as returned by
// the Sheets API) into raw ledger rows. Expected headers: Year, Month,
// Document, Concept, Amount. Month 0 or empty marks an annual row.
func parseLedger(values [][]interface{}) ([]core.LedgerRow, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colYear := indexOf(headers, "Year")
	colMonth := indexOf(headers, "Month")
	colDoc := indexOf(headers, "Document")
	colConcept := indexOf(headers, "Concept")
	colAmount := indexOf(headers, "Amount")
	if colYear == -1 || colDoc == -1 || colConcept == -1 || colAmount == -1 {
		return nil, fmt.Errorf("unexpected ledger header: got %v", headers)
	}

	var out []core.LedgerRow
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		year, err := strconv.Atoi(safeGet(row, colYear))
		if err != nil {
			continue
		}
		month := 0
		if colMonth != -1 {
			if m, err := strconv.Atoi(safeGet(row, colMonth)); err == nil {
				month = m
			}
		}
		out = append(out, core.LedgerRow{
			Year:         year,
			Month:        month,
			DocumentType: parseDocumentType(safeGet(row, colDoc)),
			Concept:      safeGet(row, colConcept),
			Amount:       safeGet(row, colAmount),
		})
	}
	return out, nil
}

func parseDocumentType(s string) core.DocumentType {
	if strings.EqualFold(strings.TrimSpace(s), string(core.DocBalance)) {
		return core.DocBalance
	}
	return core.DocPyG
}

// parseClassifications converts a CostClassifications values matrix
// into classification rows. Legacy spellings for the enum columns are
// accepted; unknown values fall back to the defaults.
func parseClassifications(values [][]interface{}) ([]core.Classification, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colType := indexOf(headers, "CostType")
	colCenter := indexOf(headers, "CostCenter")
	colNature := indexOf(headers, "Nature")
	colDist := indexOf(headers, "Distribution")
	colBasis := indexOf(headers, "Basis")
	if colType == -1 || colCenter == -1 || colNature == -1 {
		return nil, fmt.Errorf("unexpected classification header: got %v", headers)
	}

	var out []core.Classification
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		costType := safeGet(row, colType)
		if costType == "" {
			continue
		}
		c := core.DefaultClassification()
		c.CostType = costType
		if center, ok := core.ParseCostCenter(safeGet(row, colCenter)); ok {
			c.CostCenter = center
		}
		if nature, ok := core.ParseNature(safeGet(row, colNature)); ok {
			c.Nature = nature
		}
		if colDist != -1 {
			if d := safeGet(row, colDist); d != "" {
				c.Distribution = d
			}
		}
		if colBasis != -1 {
			if basis, ok := core.ParseBasis(safeGet(row, colBasis)); ok {
				c.Basis = basis
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// parseVehicles converts a Vehicles values matrix into vehicle rows.
// Kilometer columns are header-driven: every "Kms <year>" column feeds
// the per-year map.
func parseVehicles(values [][]interface{}) ([]core.Vehicle, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colPlate := indexOf(headers, "LicensePlate")
	colID := indexOf(headers, "VehicleID")
	colNum := indexOf(headers, "AssignedNumber")
	colAcq := indexOf(headers, "AcquisitionDate")
	colSale := indexOf(headers, "SaleDate")
	colAcqVal := indexOf(headers, "AcquisitionValue")
	colSaleVal := indexOf(headers, "SaleValue")
	colAmort := indexOf(headers, "AnnualAmortization")
	if colPlate == -1 || colAcq == -1 {
		return nil, fmt.Errorf("unexpected vehicles header: got %v", headers)
	}

	type kmCol struct {
		year int
		col  int
	}
	var kmCols []kmCol
	for i, h := range headers {
		rest, ok := strings.CutPrefix(strings.TrimSpace(h), "Kms ")
		if !ok {
			continue
		}
		if year, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
			kmCols = append(kmCols, kmCol{year: year, col: i})
		}
	}

	var out []core.Vehicle
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		plate := safeGet(row, colPlate)
		if plate == "" {
			continue
		}
		v := core.Vehicle{
			LicensePlate:    plate,
			AcquisitionDate: safeGet(row, colAcq),
		}
		if colID != -1 {
			v.ID = safeGet(row, colID)
		}
		if colNum != -1 {
			v.AssignedNumber, _ = strconv.Atoi(safeGet(row, colNum))
		}
		if colSale != -1 {
			v.SaleDate = safeGet(row, colSale)
		}
		if colAcqVal != -1 {
			v.AcquisitionValue, _ = core.ParseAmount(safeGet(row, colAcqVal))
		}
		if colSaleVal != -1 {
			v.SaleValue, _ = core.ParseAmount(safeGet(row, colSaleVal))
		}
		if colAmort != -1 {
			v.AnnualAmortization, _ = core.ParseAmount(safeGet(row, colAmort))
		}
		for _, kc := range kmCols {
			if kms, ok := core.ParseAmount(safeGet(row, kc.col)); ok && kms != 0 {
				if v.AnnualKms == nil {
					v.AnnualKms = map[int]float64{}
				}
				v.AnnualKms[kc.year] = kms
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// parseIncome converts a MonthlyIncome values matrix into per-year
// income. Rows with Source "subcontracted" feed the subcontracted
// series; everything else is own-fleet revenue.
func parseIncome(values [][]interface{}) ([]core.YearlyIncome, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colYear := indexOf(headers, "Year")
	colID := indexOf(headers, "ID")
	colVehicle := indexOf(headers, "VehicleID")
	colPlate := indexOf(headers, "LicensePlate")
	colSource := indexOf(headers, "Source")
	if colYear == -1 {
		return nil, fmt.Errorf("unexpected income header: got %v", headers)
	}
	monthCols := make([]int, 12)
	for m := 0; m < 12; m++ {
		monthCols[m] = indexOf(headers, monthHeaders[m])
	}

	byYear := map[int]*core.YearlyIncome{}
	var order []int
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		year, err := strconv.Atoi(safeGet(row, colYear))
		if err != nil {
			continue
		}
		yearly, exists := byYear[year]
		if !exists {
			yearly = &core.YearlyIncome{Year: year, Subcontracted: core.MonthlyAmounts{}}
			byYear[year] = yearly
			order = append(order, year)
		}

		amounts := core.MonthlyAmounts{}
		for m := 0; m < 12; m++ {
			if monthCols[m] == -1 {
				continue
			}
			if v, ok := core.ParseAmount(safeGet(row, monthCols[m])); ok && v != 0 {
				amounts[m+1] = v
			}
		}

		if colSource != -1 && strings.EqualFold(safeGet(row, colSource), "subcontracted") {
			for m, v := range amounts {
				yearly.Subcontracted[m] += v
			}
			continue
		}
		rec := core.VehicleIncome{Income: amounts}
		if colID != -1 {
			rec.ID = safeGet(row, colID)
		}
		if colVehicle != -1 {
			rec.VehicleID = safeGet(row, colVehicle)
		}
		if colPlate != -1 {
			rec.LicensePlate = safeGet(row, colPlate)
		}
		yearly.OwnFleet = append(yearly.OwnFleet, rec)
	}

	out := make([]core.YearlyIncome, 0, len(order))
	for _, year := range order {
		out = append(out, *byYear[year])
	}
	return out, nil
}

// parseAmortizations converts an AmortizationAccounts values matrix
// into amortization accounts. Plain 4-digit year headers feed the
// per-year override map.
func parseAmortizations(values [][]interface{}) ([]core.AmortizationAccount, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colID := indexOf(headers, "ID")
	colName := indexOf(headers, "Name")
	colFleet := indexOf(headers, "FleetRelated")
	colAmount := indexOf(headers, "AnnualAmount")
	if colName == -1 {
		return nil, fmt.Errorf("unexpected amortization header: got %v", headers)
	}

	type yearCol struct {
		year int
		col  int
	}
	var yearCols []yearCol
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if len(h) != 4 {
			continue
		}
		if year, err := strconv.Atoi(h); err == nil && year > 1900 && year < 3000 {
			yearCols = append(yearCols, yearCol{year: year, col: i})
		}
	}

	var out []core.AmortizationAccount
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		name := safeGet(row, colName)
		if name == "" {
			continue
		}
		acc := core.AmortizationAccount{Name: name}
		if colID != -1 {
			acc.ID = safeGet(row, colID)
		}
		if colFleet != -1 {
			acc.IsFleetRelated = parseBool(safeGet(row, colFleet))
		}
		if colAmount != -1 {
			acc.AnnualAmount, _ = core.ParseAmount(safeGet(row, colAmount))
		}
		for _, yc := range yearCols {
			if v, ok := core.ParseAmount(safeGet(row, yc.col)); ok && v != 0 {
				if acc.AnnualValues == nil {
					acc.AnnualValues = map[int]float64{}
				}
				acc.AnnualValues[yc.year] = v
			}
		}
		out = append(out, acc)
	}
	return out, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "si", "sí", "1", "x":
		return true
	}
	return false
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
