package core

import "strings"

// DefaultClassification is applied to accounts the table knows nothing
// about: a shared fixed cost apportioned by time.
func DefaultClassification() Classification {
	return Classification{
		CostCenter:   CostCenterIndirect,
		Nature:       NatureFixed,
		Distribution: DistributionGeneral,
		Basis:        BasisTime,
	}
}

// ClassificationTable resolves account codes to classifications.
//
// Lookup is two-phase: an exact match on the normalized account code
// first, then a linear scan for legacy rows whose stored costType is a
// "code + description" string containing the code. Among substring
// matches the first in table order wins; there is no further ranking.
type ClassificationTable struct {
	byCode  map[string]Classification
	ordered []Classification
}

// NewClassificationTable indexes classification rows. Row order is
// preserved for the substring fallback.
func NewClassificationTable(rows []Classification) *ClassificationTable {
	t := &ClassificationTable{
		byCode:  make(map[string]Classification, len(rows)),
		ordered: make([]Classification, 0, len(rows)),
	}
	for _, row := range rows {
		t.ordered = append(t.ordered, row)
		code := ExtractAccountCode(row.CostType)
		if code == "" {
			continue
		}
		// First row for a code wins, matching scan order.
		if _, exists := t.byCode[code]; !exists {
			t.byCode[code] = row
		}
	}
	return t
}

// Len returns the number of classification rows in the table.
func (t *ClassificationTable) Len() int {
	return len(t.ordered)
}

// Lookup finds the classification for an account code. The boolean is
// false when the account is unclassified and the default applies.
func (t *ClassificationTable) Lookup(accountCode string) (Classification, bool) {
	if accountCode == "" {
		return Classification{}, false
	}
	if c, ok := t.byCode[accountCode]; ok {
		return c, true
	}
	for _, c := range t.ordered {
		if c.CostType != "" && strings.Contains(c.CostType, accountCode) {
			return c, true
		}
	}
	return Classification{}, false
}

// ClassifiedCost is an expense line item joined with its cost
// treatment.
type ClassifiedCost struct {
	Year         int               `json:"year"`
	AccountCode  string            `json:"accountCode"`
	Concept      string            `json:"concept"`
	Amount       float64           `json:"amount"`
	CostCenter   CostCenter        `json:"costCenter"`
	Nature       Nature            `json:"nature"`
	Distribution string            `json:"distribution"`
	Basis        DistributionBasis `json:"distributionBasis"`
	Classified   bool              `json:"classified"`
}

// Classify joins a line item with the table, falling back to the
// default for unknown accounts. Deterministic and idempotent: the same
// item and table always produce the same record.
func (t *ClassificationTable) Classify(item LineItem) ClassifiedCost {
	c, ok := t.Lookup(item.AccountCode)
	if !ok {
		c = DefaultClassification()
	}
	if c.Distribution == "" {
		c.Distribution = DistributionGeneral
	}
	return ClassifiedCost{
		Year:         item.Year,
		AccountCode:  item.AccountCode,
		Concept:      item.Concept,
		Amount:       item.Amount,
		CostCenter:   c.CostCenter,
		Nature:       c.Nature,
		Distribution: c.Distribution,
		Basis:        c.Basis,
		Classified:   ok,
	}
}
