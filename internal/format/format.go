// Package format renders money, dates and counts the way every console page shows them.
package format

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
)

// Missing is shown in place of absent values.
const Missing = "-"

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency renders v as US dollars with grouping and two decimals, e.g. "$1,234.50".
// Values that are not finite render as Missing.
func Currency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing
	}
	amount := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	return sign + "$" + printer.Sprint(number.Decimal(amount.InexactFloat64(), number.Scale(2)))
}

// OptionalCurrency renders nil as Missing.
func OptionalCurrency(v *float64) string {
	if v == nil {
		return Missing
	}
	return Currency(*v)
}

// Number renders an integer with thousands grouping.
func Number(v int) string {
	return printer.Sprint(number.Decimal(v))
}

// Date renders YYYY-MM-DD, or Missing when unset.
func Date(d *erpapi.Date) string {
	if d == nil || d.IsZero() {
		return Missing
	}
	return d.String()
}

// DateTime renders "YYYY-MM-DD HH:mm" in UTC, or Missing when unset.
func DateTime(t *erpapi.Timestamp) string {
	if t == nil || t.IsZero() {
		return Missing
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) erpapi.Date {
	if loc == nil {
		loc = time.UTC
	}
	return erpapi.NewDate(now.In(loc))
}
