// Package core implements the cost allocation and break-even engine:
// ledger normalization, cost classification, vehicle activity
// resolution, allocation across the fleet and profitability metrics.
// Everything in this package is pure computation over in-memory
// snapshots; fetching and caching live in the outer layers.
package core

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	accountCodeRe    = regexp.MustCompile(`^[0-9]{8,}`)
	europeanAmountRe = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})*(,\d+)?$`)
)

// NormalizeStats reports what the normalizer dropped or defaulted, so
// the caller can surface aggregate warnings to the user.
type NormalizeStats struct {
	MalformedAmounts int      `json:"malformedAmounts"`
	MalformedSamples []string `json:"malformedSamples,omitempty"`
	BalanceRows      int      `json:"balanceRows"`
	SubtotalRows     int      `json:"subtotalRows"`
	MonthlyDiscarded int      `json:"monthlyDiscarded"`
	SignExcluded     int      `json:"signExcluded"`
}

const malformedSampleCap = 10

// IsAccountCode reports whether the concept denotes a real account
// entry: trimmed, it starts with a run of at least 8 digits. Subtotal
// and header rows ("ABC Total") fail this check.
func IsAccountCode(concept string) bool {
	return accountCodeRe.MatchString(strings.TrimSpace(concept))
}

// ExtractAccountCode returns the leading digit run of the concept, or
// "" when the concept is not a real account entry.
func ExtractAccountCode(concept string) string {
	return accountCodeRe.FindString(strings.TrimSpace(concept))
}

// ParseAmount converts a raw amount cell to a float. It accepts
// numbers as-is, European formatted strings ("1.234,56") and plain
// numeric strings. Unparseable values yield (0, false): legacy data is
// inconsistent and a bad cell must not abort the computation.
func ParseAmount(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		return parseAmountString(n.String())
	case string:
		return parseAmountString(n)
	}
	return 0, false
}

func parseAmountString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if europeanAmountRe.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// NormalizeLedger turns raw store rows into typed line items ready for
// classification. Only PyG rows with a real account code participate;
// per year, annual rows (month 0) take precedence over monthly ones to
// avoid double counting. Accounts starting with '7' and a positive
// amount are revenue, negative amounts are expenses, anything else is
// excluded by the sign convention.
func NormalizeLedger(rows []LedgerRow) ([]LineItem, NormalizeStats) {
	var stats NormalizeStats

	type candidate struct {
		row    LedgerRow
		code   string
		amount float64
	}
	var candidates []candidate
	hasAnnual := map[int]bool{}

	for _, row := range rows {
		if row.DocumentType != DocPyG {
			if row.DocumentType == DocBalance {
				stats.BalanceRows++
			}
			continue
		}
		code := ExtractAccountCode(row.Concept)
		if code == "" {
			stats.SubtotalRows++
			continue
		}
		amount, ok := ParseAmount(row.Amount)
		if !ok {
			stats.MalformedAmounts++
			if len(stats.MalformedSamples) < malformedSampleCap {
				stats.MalformedSamples = append(stats.MalformedSamples, row.Concept)
			}
			// Falls through with amount 0, contributing nothing.
		}
		if row.Month == 0 {
			hasAnnual[row.Year] = true
		}
		candidates = append(candidates, candidate{row: row, code: code, amount: amount})
	}

	items := make([]LineItem, 0, len(candidates))
	for _, c := range candidates {
		if hasAnnual[c.row.Year] && c.row.Month != 0 {
			stats.MonthlyDiscarded++
			continue
		}
		item := LineItem{
			Year:        c.row.Year,
			Month:       c.row.Month,
			AccountCode: c.code,
			Concept:     c.row.Concept,
		}
		switch {
		case strings.HasPrefix(c.code, "7") && c.amount > 0:
			item.Kind = ItemRevenue
			item.Amount = c.amount
		case c.amount < 0:
			item.Kind = ItemExpense
			item.Amount = -c.amount
		default:
			stats.SignExcluded++
			continue
		}
		items = append(items, item)
	}
	return items, stats
}
