package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopworks/beatcapture/pkg/command"
	"github.com/loopworks/beatcapture/pkg/loop"
	"github.com/loopworks/beatcapture/pkg/metronome"
)

func zeroInput(channels, n int) [][]float32 {
	in := make([][]float32, channels)
	for i := range in {
		in[i] = make([]float32, n)
	}
	return in
}

func TestImmediateCaptureScenario(t *testing.T) {
	cfg := Config{
		SampleRate:       48000,
		InitialBPM:       120,
		BeatsPerBar:      4,
		NumInputChannels: 1,
		MaxLoops:         1,
		MaxLookbackBars:  2,
		MinBPM:           40,
		LiveThreshold:    0,
		LookbackBars:     2,
	}
	e := New(cfg, nil)

	const n = 200000
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(i) / n
	}
	out := make([]float32, n)
	e.ProcessBlock([][]float32{samples}, out, n)

	require.True(t, e.Enqueue(command.Command{Kind: command.CaptureLoop, LoopIdx: 0, Quantize: metronome.Free}))

	out2 := make([]float32, 1)
	e.ProcessBlock(zeroInput(1, 1), out2, 1)

	require.Equal(t, loop.Playing, e.loops[0].State())
	require.Equal(t, 192000, e.loops[0].LoopLength())
	// The draining block writes its own first input sample (0) into the ring
	// before the capture fires, so the captured window ends with that sample.
	want := append(append([]float32(nil), samples[8001:]...), 0)
	assert.Equal(t, want, e.loops[0].Layers()[0].Samples)
}

func TestQuantizedMuteLastWins(t *testing.T) {
	cfg := Config{
		SampleRate:       48000,
		InitialBPM:       120,
		BeatsPerBar:      4,
		NumInputChannels: 1,
		MaxLoops:         1,
	}
	e := New(cfg, nil)
	e.loops[0].LoadFromCapture(make([]float32, 4), 120)

	advance := func(n int) {
		e.ProcessBlock(zeroInput(1, n), make([]float32, n), n)
	}

	advance(10000)
	require.True(t, e.Enqueue(command.Command{Kind: command.ScheduleOp, LoopIdx: 0, Op: command.OpToggleMute, Quantize: metronome.Bar}))

	advance(20000) // total = 30000
	require.True(t, e.Enqueue(command.Command{Kind: command.ScheduleOp, LoopIdx: 0, Op: command.OpMute, Quantize: metronome.Bar}))

	advance(66001) // total = 96001: sample index 96000, the bar boundary, has been processed

	assert.Equal(t, loop.Muted, e.loops[0].State())
}

func TestClassicRecordWithLatencyCompensation(t *testing.T) {
	cfg := Config{
		SampleRate:                 48000,
		InitialBPM:                 120,
		BeatsPerBar:                4,
		NumInputChannels:           1,
		MaxLoops:                   3,
		LatencyCompensationSamples: 1000,
	}
	e := New(cfg, nil)

	require.True(t, e.Enqueue(command.Command{Kind: command.Record, LoopIdx: 2, Quantize: metronome.Free}))
	e.ProcessBlock(zeroInput(1, 1), make([]float32, 1), 1)
	require.NotNil(t, e.activeRecording)

	payload := make([]float32, 50000)
	for i := range payload {
		if i < 1000 {
			payload[i] = 1.0
		} else {
			payload[i] = 0.5
		}
	}
	e.ProcessBlock([][]float32{payload}, make([]float32, 50000), 50000)

	require.True(t, e.Enqueue(command.Command{Kind: command.StopRecord, LoopIdx: 2, Quantize: metronome.Free}))
	e.ProcessBlock(zeroInput(1, 1), make([]float32, 1), 1)

	require.Nil(t, e.activeRecording)
	// All 50000 payload samples plus the stop block's own sample (appended
	// before the stop fires) are recorded; the first 1000 are trimmed.
	assert.Equal(t, 49001, e.loops[2].LoopLength())
	assert.Equal(t, float32(0.5), e.loops[2].Layers()[0].Samples[0])
}

func TestSetBpmPropagatesToClockHookAndLoops(t *testing.T) {
	cfg := Config{
		SampleRate:       48000,
		InitialBPM:       120,
		BeatsPerBar:      4,
		NumInputChannels: 1,
		MaxLoops:         1,
	}
	e := New(cfg, nil)
	e.loops[0].LoadFromCapture(make([]float32, 96000), 120)

	var pushed float64
	e.SetOnBPMChange(func(bpm float64) { pushed = bpm })

	require.True(t, e.Enqueue(command.Command{Kind: command.SetBpm, BPM: 60}))
	e.ProcessBlock(zeroInput(1, 1), make([]float32, 1), 1)

	assert.Equal(t, 60.0, e.metronome.BPM())
	assert.Equal(t, 60.0, pushed)
	assert.Equal(t, 60.0, e.loops[0].CurrentBPM())
}

func TestCancelPendingClearsAllLoops(t *testing.T) {
	cfg := Config{SampleRate: 48000, InitialBPM: 120, BeatsPerBar: 4, NumInputChannels: 1, MaxLoops: 2}
	e := New(cfg, nil)
	e.loops[0].LoadFromCapture(make([]float32, 4), 120)
	e.loops[1].LoadFromCapture(make([]float32, 4), 120)

	e.loops[0].Pending().SetReverse(1_000_000, metronome.Bar)
	e.loops[1].Pending().SetMute(1_000_000, metronome.Bar, loop.MuteOn)

	require.True(t, e.Enqueue(command.Command{Kind: command.CancelPending, LoopIdx: -1}))
	e.ProcessBlock(zeroInput(1, 1), make([]float32, 1), 1)

	assert.False(t, e.loops[0].Pending().HasPending())
	assert.False(t, e.loops[1].Pending().HasPending())
}

func TestBadLoopIndexDroppedSilently(t *testing.T) {
	cfg := Config{SampleRate: 48000, InitialBPM: 120, BeatsPerBar: 4, NumInputChannels: 1, MaxLoops: 2}
	e := New(cfg, nil)

	require.True(t, e.Enqueue(command.Command{Kind: command.ScheduleOp, LoopIdx: 99, Op: command.OpClear, Quantize: metronome.Free}))
	assert.NotPanics(t, func() {
		e.ProcessBlock(zeroInput(1, 1), make([]float32, 1), 1)
	})
}

func TestQueueFullIsCountedInStats(t *testing.T) {
	cfg := Config{SampleRate: 48000, InitialBPM: 120, BeatsPerBar: 4, NumInputChannels: 1, MaxLoops: 1, CommandQueueCapacity: 2}
	e := New(cfg, nil)

	for i := 0; i < e.queue.Capacity(); i++ {
		require.True(t, e.Enqueue(command.Command{Kind: command.CancelPending, LoopIdx: -1}))
	}
	assert.False(t, e.Enqueue(command.Command{Kind: command.CancelPending, LoopIdx: -1}))
	assert.EqualValues(t, 1, e.Stats().DroppedCommands())
}
