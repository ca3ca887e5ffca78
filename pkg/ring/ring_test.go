package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailableInvariant(t *testing.T) {
	b := New(8)
	assert.EqualValues(t, 0, b.Available())

	b.Write([]float32{1, 2, 3})
	assert.EqualValues(t, 3, b.Available())

	b.Write([]float32{4, 5, 6, 7, 8, 9})
	assert.EqualValues(t, 8, b.Available(), "available caps at capacity")
	assert.EqualValues(t, 9, b.TotalWritten())
}

func TestWriteReadRoundTrip(t *testing.T) {
	b := New(16)
	x := []float32{1, 2, 3, 4, 5}
	b.Write(x)

	out := make([]float32, len(x))
	b.ReadMostRecent(out)
	require.Equal(t, x, out)
}

func TestWriteWrapsAtCapacity(t *testing.T) {
	b := New(4)
	b.Write([]float32{1, 2, 3, 4, 5, 6})

	out := make([]float32, 4)
	b.ReadMostRecent(out)
	assert.Equal(t, []float32{3, 4, 5, 6}, out)
}

func TestWriteLongerThanCapacityKeepsTail(t *testing.T) {
	b := New(3)
	b.Write([]float32{1, 2, 3, 4, 5})

	out := make([]float32, 3)
	b.ReadMostRecent(out)
	assert.Equal(t, []float32{3, 4, 5}, out)
}

func TestReadFromPastZeroPadsMissingPrefix(t *testing.T) {
	b := New(16)
	b.Write([]float32{1, 2, 3})

	out := make([]float32, 5)
	b.ReadFromPast(out, 5)
	assert.Equal(t, []float32{0, 0, 1, 2, 3}, out)
}

func TestReadFromPastClampsExcessiveLookback(t *testing.T) {
	b := New(16)
	b.Write([]float32{1, 2, 3, 4})

	out := make([]float32, 4)
	b.ReadFromPast(out, 1000)
	assert.Equal(t, []float32{1, 2, 3, 4}, out)
}

func TestReadFromPastMidWindow(t *testing.T) {
	b := New(16)
	b.Write([]float32{1, 2, 3, 4, 5, 6})

	out := make([]float32, 3)
	b.ReadFromPast(out, 4)
	assert.Equal(t, []float32{3, 4, 5}, out)
}

func TestClear(t *testing.T) {
	b := New(4)
	b.Write([]float32{1, 2, 3, 4})
	b.Clear()

	assert.EqualValues(t, 0, b.Available())
	out := make([]float32, 4)
	b.ReadMostRecent(out)
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
}
