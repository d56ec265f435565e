package canvas

import (
	"math"

	"circuitflow/internal/domain"
)

// MaxCoord bounds canvas coordinates in both directions.
const MaxCoord = 1_000_000

// Snap floors a canvas coordinate to the enclosing grid line. NaN maps to 0
// and anything outside ±MaxCoord is clamped first.
func Snap(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > MaxCoord:
		v = MaxCoord
	case v < -MaxCoord:
		v = -MaxCoord
	}
	return int(math.Floor(v/domain.GridSize)) * domain.GridSize
}

// Aligned reports whether v sits on a grid line.
func Aligned(v int) bool {
	return v%domain.GridSize == 0
}
