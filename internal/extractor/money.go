package extractor

import (
	"strings"

	"github.com/shopspring/decimal"
)

// extractMoney returns the first amount found next to a currency marker.
// Value and currency are only ever reported together.
func extractMoney(text string) (decimal.Decimal, string, bool) {
	for _, p := range moneyPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		marker, amount := m[1], m[2]
		if !p.markerFirst {
			marker, amount = m[2], m[1]
		}

		code, ok := currencyCodes[normalizeMarker(marker)]
		if !ok {
			return decimal.Decimal{}, "", false
		}
		value, err := decimal.NewFromString(strings.ReplaceAll(amount, ",", ""))
		if err != nil {
			return decimal.Decimal{}, "", false
		}
		return value, code, true
	}
	return decimal.Decimal{}, "", false
}

func normalizeMarker(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, ".", ""))
	return strings.Join(strings.Fields(s), " ")
}
