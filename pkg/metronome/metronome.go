// Package metronome implements the engine's sample-accurate tempo clock and
// the quantize-boundary math the scheduler snaps operations to.
package metronome

import "math"

// Quantize selects the boundary a scheduled operation snaps to.
type Quantize int

const (
	// Free executes immediately, with no boundary snap.
	Free Quantize = iota
	// Beat snaps to the next beat boundary.
	Beat
	// Bar snaps to the next bar boundary.
	Bar
)

// Position is a read-only snapshot of the clock at a moment in time.
type Position struct {
	TotalSamples uint64
	Bar          int64
	Beat         int
	BeatFraction float64
}

// OnBoundary is invoked once per beat or bar crossing, with the position
// measured exactly at the boundary sample (not at the end of the advance
// that crossed it).
type OnBoundary func(pos Position)

// Clock is a sample-accurate tempo/beat/bar clock. It is owned and advanced
// exclusively by the audio thread. totalSamples is the engine's one
// authoritative clock (spec.md §3): it only ever increases by exactly the
// number of samples processed and is never re-anchored, so every
// previously computed absolute execute_sample deadline stays valid across
// a tempo change. Beat/bar phase is instead tracked by a separate
// (anchorSample, anchorBeatIndex) pair that SetBPM updates.
type Clock struct {
	sampleRate   float64
	bpm          float64
	beatsPerBar  int
	totalSamples uint64

	anchorSample    uint64
	anchorBeatIndex float64

	onBeat OnBoundary
	onBar  OnBoundary
}

// New creates a clock at the given sample rate, tempo, and time signature
// numerator.
func New(sampleRate, bpm float64, beatsPerBar int) *Clock {
	if beatsPerBar < 1 {
		beatsPerBar = 4
	}
	return &Clock{
		sampleRate:  sampleRate,
		bpm:         bpm,
		beatsPerBar: beatsPerBar,
	}
}

// SetCallbacks installs the boundary-crossing callbacks. The engine owns
// both the clock and the callbacks it passes in; there is no back-pointer
// from the clock to the engine.
func (c *Clock) SetCallbacks(onBeat, onBar OnBoundary) {
	c.onBeat = onBeat
	c.onBar = onBar
}

// SamplesPerBeat returns 60/bpm * sampleRate at the current tempo.
func (c *Clock) SamplesPerBeat() float64 {
	return 60.0 / c.bpm * c.sampleRate
}

// SamplesPerBar returns SamplesPerBeat * beatsPerBar.
func (c *Clock) SamplesPerBar() float64 {
	return c.SamplesPerBeat() * float64(c.beatsPerBar)
}

// BPM returns the current tempo.
func (c *Clock) BPM() float64 {
	return c.bpm
}

// BeatsPerBar returns the configured time signature numerator.
func (c *Clock) BeatsPerBar() int {
	return c.beatsPerBar
}

// TotalSamples returns the running sample count since the clock started.
// This value is monotonic for the clock's entire lifetime, including
// across SetBPM calls.
func (c *Clock) TotalSamples() uint64 {
	return c.totalSamples
}

// beatBoundaryF returns the (possibly negative, when beat falls before the
// anchor) sample at which the given fractional beat index crosses, measured
// against the current tempo anchor. It is the single source of truth for
// boundary math; callers that need a uint64 (always beats strictly after the
// anchor) use beatBoundarySample instead.
func (c *Clock) beatBoundaryF(beat float64) float64 {
	return float64(c.anchorSample) + math.Round((beat-c.anchorBeatIndex)*c.SamplesPerBeat())
}

// beatBoundarySample is beatBoundaryF truncated to a uint64. Only valid for
// beats at or after the anchor's own beat, which is the only case the
// Advance/SamplesUntilBoundary callers ever query.
func (c *Clock) beatBoundarySample(beat float64) uint64 {
	f := c.beatBoundaryF(beat)
	if f < 0 {
		return 0
	}
	return uint64(f)
}

// beatIndexAt returns the beat index whose boundary sample is nearest to
// and at-or-before the given total-sample count.
func (c *Clock) beatIndexAt(total uint64) int64 {
	spb := c.SamplesPerBeat()
	elapsed := float64(total) - float64(c.anchorSample)
	b := int64(math.Floor(c.anchorBeatIndex + elapsed/spb))
	tf := float64(total)
	for c.beatBoundaryF(float64(b+1)) <= tf {
		b++
	}
	for b > 0 && c.beatBoundaryF(float64(b)) > tf {
		b--
	}
	return b
}

// Position returns the current position, derived from TotalSamples and the
// current tempo anchor.
func (c *Clock) Position() Position {
	return c.positionAt(c.totalSamples)
}

func (c *Clock) positionAt(total uint64) Position {
	beatIdx := c.beatIndexAt(total)

	// The fraction is measured from the unrounded beat start so that a
	// re-anchor in SetBPM carries the phase over exactly; rounding of the
	// boundary sample can put total a fraction of a sample before it.
	spb := c.SamplesPerBeat()
	beatStart := float64(c.anchorSample) + (float64(beatIdx)-c.anchorBeatIndex)*spb
	frac := (float64(total) - beatStart) / spb
	if frac < 0 {
		frac = 0
	}

	bar := beatIdx / int64(c.beatsPerBar)
	beatInBar := int(beatIdx % int64(c.beatsPerBar))
	if beatInBar < 0 {
		beatInBar += c.beatsPerBar
	}

	return Position{
		TotalSamples: total,
		Bar:          bar,
		Beat:         beatInBar,
		BeatFraction: frac,
	}
}

// Advance moves the clock forward by n samples, firing OnBeat/OnBar for
// every boundary crossed, each with the position measured at that boundary
// sample.
func (c *Clock) Advance(n uint64) {
	if n == 0 {
		return
	}
	start := c.totalSamples
	end := start + n

	firstBeat := c.beatIndexAt(start) + 1
	for b := firstBeat; c.beatBoundarySample(float64(b)) <= end; b++ {
		boundary := c.beatBoundarySample(float64(b))
		if boundary <= start {
			continue
		}
		pos := c.positionAt(boundary)
		if c.onBeat != nil {
			c.onBeat(pos)
		}
		if b%int64(c.beatsPerBar) == 0 && c.onBar != nil {
			c.onBar(pos)
		}
	}

	c.totalSamples = end
}

// SetBPM changes the tempo while preserving the fractional position within
// the current beat (phase-continuous). It re-anchors the beat-counting
// origin, never totalSamples: the sample clock itself must stay
// tempo-independent so every already-scheduled absolute execute_sample
// deadline (§9 bullet 3) keeps pointing at the same sample regardless of
// tempo changes in between.
func (c *Clock) SetBPM(bpm float64) {
	if bpm <= 0 {
		return
	}
	pos := c.Position()
	beatIdx := pos.Bar*int64(c.beatsPerBar) + int64(pos.Beat)

	c.anchorBeatIndex = float64(beatIdx) + pos.BeatFraction
	c.anchorSample = c.totalSamples
	c.bpm = bpm
}

// SamplesUntilBoundary returns how many samples remain until q's next
// boundary: 0 for Free.
func (c *Clock) SamplesUntilBoundary(q Quantize) uint64 {
	switch q {
	case Beat:
		beatIdx := c.beatIndexAt(c.totalSamples)
		next := c.beatBoundarySample(float64(beatIdx + 1))
		return next - c.totalSamples
	case Bar:
		beatIdx := c.beatIndexAt(c.totalSamples)
		barBeats := int64(c.beatsPerBar)
		nextBarBeat := ((beatIdx / barBeats) + 1) * barBeats
		next := c.beatBoundarySample(float64(nextBarBeat))
		return next - c.totalSamples
	default:
		return 0
	}
}
