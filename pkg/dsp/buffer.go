// Package dsp provides digital signal processing utilities for audio
package dsp

// Buffer utilities for common audio operations

// Clear zeroes a buffer - no allocations
func Clear(buffer []float32) {
	for i := range buffer {
		buffer[i] = 0
	}
}

// Add adds source to destination - no allocations
func Add(dst, src []float32) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}
