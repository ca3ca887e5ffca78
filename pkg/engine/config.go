package engine

import "github.com/loopworks/beatcapture/pkg/metronome"

// Config holds construction-time and initial runtime-settable engine
// parameters. It is a plain struct constructed in-process by the caller;
// no config-file reader is wired into this package, since the spec this
// engine implements treats the config reader as an external collaborator.
type Config struct {
	// Construction-time.
	MaxLoops             int
	MaxLookbackBars      int
	SampleRate           float64
	MinBPM               float64
	NumInputChannels     int
	LiveThreshold        float64
	LiveWindowMs         float64
	InitialBPM           float64
	BeatsPerBar          int
	CommandQueueCapacity int

	// Runtime-settable (also used as the initial value at construction).
	DefaultQuantize             metronome.Quantize
	LookbackBars                float64
	CrossfadeSamples            int
	LatencyCompensationSamples  int
	InputMonitoring             bool
	ClickEnabled                bool
	ClickVolume                 float32
	MidiSyncEnabled             bool
}

// Validate fills in defensive defaults for anything left unset or out of
// range, mirroring the construction-time clamping the teacher's
// NewWriteAheadBuffer applies to its own derived sizes.
func (c *Config) Validate() {
	if c.MaxLoops < 1 {
		c.MaxLoops = 8
	}
	if c.MaxLoops > 64 {
		c.MaxLoops = 64
	}
	if c.MaxLookbackBars < 1 {
		c.MaxLookbackBars = 8
	}
	if c.MaxLookbackBars > 64 {
		c.MaxLookbackBars = 64
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 48000
	}
	if c.MinBPM <= 0 {
		c.MinBPM = 40
	}
	if c.NumInputChannels < 1 {
		c.NumInputChannels = 1
	}
	if c.LiveWindowMs <= 0 {
		c.LiveWindowMs = 100
	}
	if c.InitialBPM <= 0 {
		c.InitialBPM = 120
	}
	if c.BeatsPerBar < 1 {
		c.BeatsPerBar = 4
	}
	if c.CommandQueueCapacity <= 0 {
		c.CommandQueueCapacity = 256
	}
	if c.LookbackBars <= 0 || c.LookbackBars > float64(c.MaxLookbackBars) {
		c.LookbackBars = float64(c.MaxLookbackBars)
	}
	if c.CrossfadeSamples < 0 {
		c.CrossfadeSamples = 0
	}
	if c.LatencyCompensationSamples < 0 {
		c.LatencyCompensationSamples = 0
	}
	if c.ClickVolume <= 0 {
		c.ClickVolume = 0.5
	}
}

// RingCapacity returns the per-channel lookback ring capacity: MaxLookbackBars
// bars of four beats at MinBPM, so the buffer never needs resizing. The
// size does not follow BeatsPerBar; with more than four beats per bar it
// holds fewer than MaxLookbackBars bars at MinBPM.
func (c *Config) RingCapacity() int {
	return int(float64(c.MaxLookbackBars) * 4 * 60 / c.MinBPM * c.SampleRate)
}
