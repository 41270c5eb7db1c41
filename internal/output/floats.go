package output

import (
	"math"
	"strconv"
	"strings"
)

// floatPrecision is the number of decimal places kept in every document.
const floatPrecision = 6

// RoundFloat rounds a float to floatPrecision decimal places.
func RoundFloat(f float64) float64 {
	multiplier := math.Pow(10, floatPrecision)
	return math.Round(f*multiplier) / multiplier
}

// FormatFloat formats a rounded float with no trailing zeros.
func FormatFloat(f float64) string {
	str := strconv.FormatFloat(RoundFloat(f), 'f', floatPrecision, 64)
	str = strings.TrimRight(str, "0")
	str = strings.TrimSuffix(str, ".")
	if str == "-0" {
		return "0"
	}
	return str
}
