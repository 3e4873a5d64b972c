package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// currencyPrecision maps an ISO 4217 code to its minor-unit digits.
// Zero-decimal and high-precision currencies are listed explicitly;
// everything else uses the common two digits.
var currencyPrecision = map[string]int32{
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"CHF": 2,
	"CAD": 2,
	"AUD": 2,
	"SEK": 2,
	"NOK": 2,
	"DKK": 2,
	"PLN": 2,
	"CZK": 2,
	"BRL": 2,
	"INR": 2,
	"CNY": 2,
	"SGD": 2,
	"HKD": 2,
	"NZD": 2,
	"RUB": 2,
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
	"PYG": 0,
	"UGX": 0,
	"ISK": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"JOD": 3,
	"TND": 3,
	"IQD": 3,
	"LYD": 3,
	"BTC": 8,
	"ETH": 8,
}

// CurrencyPrecision returns the number of decimal places for a currency
// code, or a ConfigError for a code it does not know.
func CurrencyPrecision(code string) (int32, error) {
	p, ok := currencyPrecision[strings.ToUpper(code)]
	if !ok {
		return 0, &ConfigError{Field: "currency", Reason: fmt.Sprintf("unknown code %q", code)}
	}
	return p, nil
}

// RoundToCurrencyPrecision rounds amount to the currency's minor unit,
// half away from zero, so 19.005 USD becomes 19.01 and 19.4 JPY becomes 19.
func RoundToCurrencyPrecision(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	p, err := CurrencyPrecision(code)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount.Round(p), nil
}

// Convert moves amount from one currency to another through EUR cross
// rates (units of currency per 1 EUR, as the ECB publishes them) and
// rounds the result to the target currency's precision.
func Convert(amount decimal.Decimal, from, to string, eurRates map[string]decimal.Decimal) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return RoundToCurrencyPrecision(amount, to)
	}
	fromRate, err := crossRate(from, eurRates)
	if err != nil {
		return decimal.Decimal{}, err
	}
	toRate, err := crossRate(to, eurRates)
	if err != nil {
		return decimal.Decimal{}, err
	}
	inEUR := amount.Div(fromRate)
	return RoundToCurrencyPrecision(inEUR.Mul(toRate), to)
}

func crossRate(code string, eurRates map[string]decimal.Decimal) (decimal.Decimal, error) {
	if code == "EUR" {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := eurRates[code]
	if !ok {
		return decimal.Decimal{}, &ConfigError{Field: "currency", Reason: fmt.Sprintf("no exchange rate for %q", code)}
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, &ConfigError{Field: "currency", Reason: fmt.Sprintf("non-positive exchange rate for %q", code)}
	}
	return rate, nil
}
