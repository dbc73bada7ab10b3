// Package format renders amounts for people rather than machines.
package format

import (
	"github.com/sapat/feed-optimizer/pkg/constants"
	"github.com/sapat/feed-optimizer/pkg/mathutil"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := NumericCurrency(amount)
	if formatted[0] == '-' {
		return "-$" + formatted[1:]
	}
	return "$" + formatted
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	return printer.Sprintf("%.2f", mathutil.Round(amount))
}

// Percent renders a fraction as a percentage with two decimals (e.g., 0.625 -> "62.50%").
func Percent(fraction float64) string {
	return printer.Sprintf("%.2f%%", decimal.NewFromFloat(fraction).Shift(2).Round(constants.CurrencyPlaces).InexactFloat64())
}
