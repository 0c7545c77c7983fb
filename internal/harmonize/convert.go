package harmonize

import (
	"fmt"
	"math"
)

// GigagramToTonne converts Gg to metric tonnes (1 Gg = 1000 t)
func GigagramToTonne(gg float64) float64 {
	return gg * 1000
}

// KilotonneToTonne converts kt to metric tonnes
func KilotonneToTonne(kt float64) float64 {
	return kt * 1000
}

// BillionToUnit converts a value in billions to units
func BillionToUnit(b float64) float64 {
	return b * 1e9
}

// ToInt truncates toward zero
func ToInt(v float64) (int64, error) {
	t := math.Trunc(v)
	if math.IsNaN(t) || t >= math.MaxInt64 || t < math.MinInt64 {
		return 0, fmt.Errorf("value %g out of integer range", v)
	}
	return int64(t), nil
}
