// Package input wraps the per-channel lookback ring buffer with cheap
// block-based activity (peak) detection so the audio thread never has to
// scan a whole window to decide whether a channel is "live".
package input

import (
	"math"

	"github.com/loopworks/beatcapture/pkg/ring"
)

const defaultBlockSize = 64

// Channel owns a lookback ring buffer and tracks whether the signal on it
// currently exceeds an activity threshold, using the block-peak algorithm
// from the design: a small circular buffer of per-block peaks is
// recomputed only when a block completes, giving O(1) amortized "is this
// live right now" queries instead of a full-window scan per sample.
type Channel struct {
	buf *ring.Buffer

	blockSize int
	blockPeak float32
	blockFill int

	peaks      []float32
	peaksPos   int
	cachedPeak float32

	threshold float64

	lastBreachSample uint64
	haveBreached     bool
}

// New creates an input channel with the given lookback capacity (samples),
// activity window size (samples), and threshold. threshold <= 0 disables
// activity detection (the channel is always considered live).
func New(lookbackCapacity, windowSamples int, threshold float64) *Channel {
	blockSize := defaultBlockSize
	if windowSamples < blockSize {
		blockSize = windowSamples
	}
	if blockSize < 1 {
		blockSize = 1
	}
	numBlocks := windowSamples / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}

	return &Channel{
		buf:       ring.New(lookbackCapacity),
		blockSize: blockSize,
		peaks:     make([]float32, numBlocks),
		threshold: threshold,
	}
}

// Buffer returns the channel's lookback ring buffer.
func (c *Channel) Buffer() *ring.Buffer {
	return c.buf
}

// WriteSample writes one input sample into the lookback buffer and updates
// the block-peak activity tracker.
func (c *Channel) WriteSample(s float32) {
	c.buf.WriteSample(s)

	abs := float32(math.Abs(float64(s)))
	if abs > c.blockPeak {
		c.blockPeak = abs
	}
	c.blockFill++
	if c.blockFill >= c.blockSize {
		c.peaks[c.peaksPos] = c.blockPeak
		c.peaksPos = (c.peaksPos + 1) % len(c.peaks)

		max := float32(0)
		for _, p := range c.peaks {
			if p > max {
				max = p
			}
		}
		c.cachedPeak = max
		c.blockPeak = 0
		c.blockFill = 0
	}
}

// UpdateBreachState is called once per processed block (not per sample) by
// the engine: if the channel is currently live, currentSample is recorded
// as its most recent above-threshold sample.
func (c *Channel) UpdateBreachState(currentSample uint64) {
	if c.IsLive() {
		c.lastBreachSample = currentSample
		c.haveBreached = true
	}
}

// Peak returns the current activity peak level: the max of the cached
// window peak and whatever has accumulated in the in-progress block.
func (c *Channel) Peak() float32 {
	if c.blockPeak > c.cachedPeak {
		return c.blockPeak
	}
	return c.cachedPeak
}

// IsLive reports whether the channel's current peak exceeds the configured
// threshold, or true unconditionally when detection is disabled.
func (c *Channel) IsLive() bool {
	if c.threshold <= 0 {
		return true
	}
	return float64(c.Peak()) > c.threshold
}

// SetThreshold updates the activity threshold (<=0 disables detection).
func (c *Channel) SetThreshold(threshold float64) {
	c.threshold = threshold
}

// BreachedSince reports whether this channel's most recent above-threshold
// sample is at or after sinceSample — the O(1) qualification test used by
// capture to decide whether a channel's signal belongs in the mix.
func (c *Channel) BreachedSince(sinceSample uint64) bool {
	if c.threshold <= 0 {
		return true
	}
	return c.haveBreached && c.lastBreachSample >= sinceSample
}
