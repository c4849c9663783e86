package exporter

import "strconv"

// formatFloat formats a matrix cell for CSV output using the shortest
// representation that round-trips. Category codes stay integral ("3", not
// "3.00") and medians keep full precision.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
