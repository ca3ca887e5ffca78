package midiclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOutputWhenDisabled(t *testing.T) {
	var bytes []byte
	g := New(48000, 120, func(b byte) { bytes = append(bytes, b) })
	for i := 0; i < 100000; i++ {
		g.Advance()
	}
	assert.Empty(t, bytes)
}

func TestStartStopBytesOnTransition(t *testing.T) {
	var bytes []byte
	g := New(48000, 120, func(b byte) { bytes = append(bytes, b) })

	g.SetEnabled(true)
	require.Len(t, bytes, 1)
	assert.Equal(t, ByteStart, bytes[0])

	g.SetEnabled(true) // no-op, already enabled
	assert.Len(t, bytes, 1)

	g.SetEnabled(false)
	require.Len(t, bytes, 2)
	assert.Equal(t, ByteStop, bytes[1])
}

func TestEmits24TicksPerQuarterNote(t *testing.T) {
	sampleRate, bpm := 48000.0, 120.0
	samplesPerBeat := 60.0 / bpm * sampleRate // 24000 samples

	var ticks int
	g := New(sampleRate, bpm, func(b byte) {
		if b == ByteClock {
			ticks++
		}
	})
	g.SetEnabled(true)

	for i := 0; i < int(samplesPerBeat); i++ {
		g.Advance()
	}
	assert.Equal(t, ticksPerQuarterNote, ticks)
}

func TestSetBPMPreservesTickPhase(t *testing.T) {
	sampleRate, bpm := 48000.0, 120.0
	g := New(sampleRate, bpm, nil)
	g.SetEnabled(true)

	for i := 0; i < 100; i++ {
		g.Advance()
	}
	fracBefore := g.samplesSinceTick / g.samplesPerTick

	g.SetBPM(sampleRate, 90)
	fracAfter := g.samplesSinceTick / g.samplesPerTick

	assert.InDelta(t, fracBefore, fracAfter, 1e-9)
}
