//go:build debug

// Package allocguard provides test-time allocation checking for the
// engine's per-sample hot path, grounded on the teacher's
// pkg/dsp/debug allocation tracker. It is only compiled into debug
// builds and test binaries invoked with -tags debug.
package allocguard

import (
	"fmt"
	"testing"
)

// AssertNoAllocs fails t if calling fn allocates, using
// testing.AllocsPerRun to average out GC noise. name identifies the
// hot path being checked in the failure message.
func AssertNoAllocs(t testing.TB, name string, fn func()) {
	t.Helper()

	allocs := testing.AllocsPerRun(100, fn)
	if allocs > 0 {
		t.Errorf("%s: expected zero allocations, got %.2f per run", name, allocs)
	}
}

// CheckPreallocated panics if buffer is nil or has zero capacity,
// catching accidental nil slices passed into the per-sample path
// before they turn into a silent no-op.
func CheckPreallocated(buffer []float32, name string) {
	if buffer == nil {
		panic(fmt.Sprintf("allocguard: buffer %s is nil", name))
	}
	if cap(buffer) == 0 {
		panic(fmt.Sprintf("allocguard: buffer %s is not pre-allocated", name))
	}
}
