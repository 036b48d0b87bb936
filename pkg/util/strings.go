package util

import "strconv"

// FormatFloatPtr renders an optional number, or "-" when absent.
func FormatFloatPtr(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// FormatFloat renders v with fixed precision.
func FormatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
