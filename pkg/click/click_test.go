package click

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loopworks/beatcapture/pkg/metronome"
)

func TestSilentUntilTriggered(t *testing.T) {
	g := New(48000)
	for i := 0; i < 100; i++ {
		assert.Zero(t, g.NextSample())
	}
}

func TestBeatTriggerProducesNonZeroThenDecays(t *testing.T) {
	g := New(48000)
	g.OnBeat(metronome.Position{})

	peak := float32(0)
	for i := 0; i < 4000; i++ {
		s := g.NextSample()
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	assert.Greater(t, peak, float32(0))

	for i := 0; i < 48000; i++ {
		g.NextSample()
	}
	assert.False(t, g.Enabled() == false) // enabled flag untouched by decay
	assert.Zero(t, g.NextSample(), "envelope should have fully decayed")
}

func TestDisabledProducesSilence(t *testing.T) {
	g := New(48000)
	g.SetEnabled(false)
	g.OnBeat(metronome.Position{})
	for i := 0; i < 100; i++ {
		assert.Zero(t, g.NextSample())
	}
}

func TestSetVolumeScalesOutput(t *testing.T) {
	g := New(48000)
	g.SetVolume(0)
	g.OnBeat(metronome.Position{})
	assert.Zero(t, g.NextSample())
}
