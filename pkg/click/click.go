// Package click generates the metronome click heard alongside loop
// playback: a short decaying sinusoid retriggered on every beat, with an
// accented pitch on bar downbeats.
package click

import (
	"github.com/loopworks/beatcapture/pkg/dsp/envelope"
	"github.com/loopworks/beatcapture/pkg/dsp/gain"
	"github.com/loopworks/beatcapture/pkg/dsp/oscillator"
	"github.com/loopworks/beatcapture/pkg/metronome"
)

const (
	beatFrequencyHz   = 1000.0
	downbeatFrequency = 1500.0
	decaySeconds      = 0.05
)

// Generator produces the click signal. It is driven one sample at a time
// from the audio thread and retriggered by the engine's beat/bar callbacks.
type Generator struct {
	osc *oscillator.Oscillator
	env *envelope.ADSR

	enabled bool
	volume  float32
}

// New creates a click generator at the given sample rate.
func New(sampleRate float64) *Generator {
	osc := oscillator.New(sampleRate)
	osc.SetFrequency(beatFrequencyHz)

	env := envelope.New(sampleRate)
	env.SetADSR(0.0005, decaySeconds, 0.0, 0.001)

	return &Generator{
		osc:     osc,
		env:     env,
		enabled: true,
		volume:  gain.DbToLinear32(-6),
	}
}

// SetEnabled turns the click on or off.
func (g *Generator) SetEnabled(enabled bool) {
	g.enabled = enabled
}

// Enabled reports whether the click is currently on.
func (g *Generator) Enabled() bool {
	return g.enabled
}

// SetVolume sets the click's linear gain (0..1 typically).
func (g *Generator) SetVolume(linear float32) {
	g.volume = linear
}

// Volume returns the click's linear gain.
func (g *Generator) Volume() float32 {
	return g.volume
}

// OnBeat retriggers the click at the plain beat pitch. Wire this directly
// as a metronome.OnBoundary.
func (g *Generator) OnBeat(metronome.Position) {
	g.osc.SetFrequency(beatFrequencyHz)
	g.osc.Reset()
	g.env.Trigger()
}

// OnBar retriggers the click at the accented downbeat pitch. Wire this
// directly as a metronome.OnBoundary; install it so it fires after OnBeat
// on bar-boundary samples so the accent pitch wins.
func (g *Generator) OnBar(metronome.Position) {
	g.osc.SetFrequency(downbeatFrequency)
	g.osc.Reset()
	g.env.Trigger()
}

// NextSample returns the next click sample (0 when disabled or idle).
func (g *Generator) NextSample() float32 {
	if !g.env.IsActive() {
		return 0
	}
	sample := g.osc.Sine() * g.env.Next() * g.volume
	if !g.enabled {
		return 0
	}
	return sample
}
