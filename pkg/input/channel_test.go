package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlwaysLiveWhenThresholdDisabled(t *testing.T) {
	c := New(1000, 256, 0)
	assert.True(t, c.IsLive())
	c.WriteSample(0)
	assert.True(t, c.IsLive())
}

func TestLiveAfterBlockCompletesAboveThreshold(t *testing.T) {
	c := New(1000, 128, 0.5)
	assert.False(t, c.IsLive())

	for i := 0; i < 64; i++ {
		c.WriteSample(0.9)
	}
	assert.True(t, c.IsLive(), "peak should be cached once the block completes")
}

func TestNotLiveBelowThreshold(t *testing.T) {
	c := New(1000, 128, 0.5)
	for i := 0; i < 128; i++ {
		c.WriteSample(0.1)
	}
	assert.False(t, c.IsLive())
}

func TestBreachedSinceTracksLastLiveBlock(t *testing.T) {
	c := New(1000, 64, 0.5)
	for i := 0; i < 64; i++ {
		c.WriteSample(0.9)
	}
	c.UpdateBreachState(1000)
	assert.True(t, c.BreachedSince(900))
	assert.False(t, c.BreachedSince(1001))
}

func TestBreachedSinceAlwaysTrueWhenDisabled(t *testing.T) {
	c := New(1000, 64, 0)
	assert.True(t, c.BreachedSince(1_000_000))
}
