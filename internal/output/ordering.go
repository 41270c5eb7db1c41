package output

import (
	"sort"
)

// HealthRow is one line of the human health listing.
type HealthRow struct {
	Feature string
	Overall float64
}

// SortHealthRows sorts rows by overall DESC, feature ASC.
func SortHealthRows(rows []HealthRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Overall != rows[j].Overall {
			return rows[i].Overall > rows[j].Overall
		}
		return rows[i].Feature < rows[j].Feature
	})
}
