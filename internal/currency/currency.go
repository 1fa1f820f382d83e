// Package currency resolves the minor-unit resolution of currencies.
package currency

import (
	"strings"

	"github.com/mmynk/ledgerwise/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultMinorUnits applies to any currency not listed in minorUnits,
// fictitious codes included.
const DefaultMinorUnits int32 = 2

// minorUnits lists currencies whose minor unit differs from DefaultMinorUnits.
var minorUnits = map[models.Currency]int32{
	// No subdivision
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0,
	"KRW": 0, "PYG": 0, "RWF": 0, "UGX": 0, "UYI": 0, "VND": 0, "VUV": 0,
	"XAF": 0, "XOF": 0, "XPF": 0,

	// Thousandths
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,

	// Ten-thousandths
	"CLF": 4, "UYW": 4,
}

// MinorUnits returns the number of fractional digits of the currency.
func MinorUnits(c models.Currency) int32 {
	if n, ok := minorUnits[c]; ok {
		return n
	}
	return DefaultMinorUnits
}

// Unit returns the smallest representable amount of the currency (e.g. 0.01 EUR).
func Unit(c models.Currency) decimal.Decimal {
	return decimal.New(1, -MinorUnits(c))
}

// Round rounds amount to the currency's minor unit using banker's rounding.
func Round(amount decimal.Decimal, c models.Currency) decimal.Decimal {
	return amount.RoundBank(MinorUnits(c))
}

// Format renders amount with exactly the currency's number of fractional digits.
func Format(amount decimal.Decimal, c models.Currency) string {
	return Round(amount, c).StringFixedBank(MinorUnits(c))
}

// Normalize trims and upper-cases a currency code.
func Normalize(code string) models.Currency {
	return models.Currency(strings.ToUpper(strings.TrimSpace(code)))
}
