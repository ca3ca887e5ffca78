// Package interpolation provides audio interpolation and resampling utilities.
package interpolation

// Hermite performs 4-point Hermite interpolation.
// frac is the fractional position between y1 and y2 (0.0 to 1.0).
func Hermite(y0, y1, y2, y3, frac float32) float32 {
	// 4-point, 3rd-order Hermite
	c0 := y1
	c1 := 0.5 * (y2 - y0)
	c2 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	c3 := 0.5 * (y3 - y0 + 3*(y1-y2))

	return ((c3*frac+c2)*frac+c1)*frac + c0
}
