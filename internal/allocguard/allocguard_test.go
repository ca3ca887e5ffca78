//go:build debug

package allocguard

import "testing"

func TestAssertNoAllocsPassesForAllocationFreeWork(t *testing.T) {
	buf := make([]float32, 8)
	AssertNoAllocs(t, "zero sum", func() {
		var sum float32
		for _, v := range buf {
			sum += v
		}
		_ = sum
	})
}

func TestCheckPreallocatedPanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on nil buffer")
		}
	}()
	CheckPreallocated(nil, "scratch")
}

func TestCheckPreallocatedPanicsOnZeroCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on zero-capacity buffer")
		}
	}()
	CheckPreallocated([]float32{}, "scratch")
}
