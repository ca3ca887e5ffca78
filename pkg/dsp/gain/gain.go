// Package gain provides amplitude and gain-related DSP operations.
package gain

import (
	"math"
)

// MinDB is the minimum dB value (effectively -infinity)
const MinDB = -200.0

// DbToLinear32 converts a decibel value to a float32 linear amplitude.
// Values <= MinDB return 0.
func DbToLinear32(db float32) float32 {
	if db <= MinDB {
		return 0
	}
	return float32(math.Pow(10.0, float64(db)/20.0))
}
