package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PenceToPounds formats an amount in pence as pounds with two decimal places.
func PenceToPounds(pence int64) string {
	return decimal.New(pence, -2).StringFixed(2)
}

// PoundsToPence parses a pounds amount such as "12.5" or "£1,000.00" into pence.
// Amounts with more than two decimal places are rejected.
func PoundsToPence(pounds string) (int64, error) {
	s := strings.TrimSpace(pounds)
	s = strings.TrimPrefix(s, "£")
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", pounds, err)
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("amount %q has more than two decimal places", pounds)
	}
	return d.Mul(hundred).IntPart(), nil
}
