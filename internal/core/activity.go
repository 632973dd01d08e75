package core

import "time"

// Activity describes a vehicle's presence in a fiscal year.
type Activity struct {
	Active          bool    `json:"active"`
	MonthsActive    int     `json:"monthsActive"`
	TimeCoefficient float64 `json:"timeCoefficient"` // monthsActive / 12, in [0,1]
	Kms             float64 `json:"kms"`
	DateDefaulted   bool    `json:"-"` // acquisition/sale date was unparseable
}

// fallbackDate stands in for unparseable acquisition dates, far enough
// back that the vehicle counts as owned for any year under study. This
// mirrors the permissive behavior of the legacy importer.
var fallbackDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// ResolveActivity determines whether the vehicle was owned during the
// year and, if so, for how many months and kilometers. The ownership
// interval [acquisition, sale] is intersected with the calendar year;
// monthsActive counts whole months in the intersection, clamped to
// [1,12].
func ResolveActivity(v Vehicle, year int) Activity {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	var defaulted bool
	acq, ok := ParseFlexibleDate(v.AcquisitionDate)
	if !ok {
		acq = fallbackDate
		defaulted = true
	}

	var sale time.Time
	hasSale := false
	if v.SaleDate != "" {
		if d, ok := ParseFlexibleDate(v.SaleDate); ok {
			sale = d
			hasSale = true
		} else {
			defaulted = true
		}
	}

	if acq.After(yearEnd) || (hasSale && sale.Before(yearStart)) {
		return Activity{DateDefaulted: defaulted}
	}

	start := acq
	if start.Before(yearStart) {
		start = yearStart
	}
	end := yearEnd
	if hasSale && sale.Before(yearEnd) {
		end = sale
	}

	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
	if months < 1 {
		months = 1
	}
	if months > 12 {
		months = 12
	}

	return Activity{
		Active:          true,
		MonthsActive:    months,
		TimeCoefficient: float64(months) / 12,
		Kms:             v.AnnualKms[year],
		DateDefaulted:   defaulted,
	}
}
