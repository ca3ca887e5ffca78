package engine

import (
	"github.com/loopworks/beatcapture/pkg/loop"
	"github.com/loopworks/beatcapture/pkg/metronome"
)

// LoopSnapshot is the read-only view of one loop exposed to non-real-time
// consumers.
type LoopSnapshot struct {
	State            loop.State
	LoopLength       int
	LayerCount       int
	ActiveLayerCount int
	Speed            float64
	Reversed         bool
	PlayPos          int
	LengthInBars     float64
	RecordedBPM      float64
	CurrentBPM       float64
}

// ChannelSnapshot is the read-only view of one input channel.
type ChannelSnapshot struct {
	Peak float32
	Live bool
}

// Snapshot is the engine's full read-only state, built on the consumer
// thread by Engine.Snapshot from the peaks and atomics the audio thread
// publishes non-blockingly and from the engine's own accessors.
type Snapshot struct {
	Position metronome.Position
	BPM      float64

	Loops    []LoopSnapshot
	Channels []ChannelSnapshot

	IsRecording      bool
	RecordingLoopIdx int

	DefaultQuantize            metronome.Quantize
	LookbackBars               float64
	CrossfadeSamples           int
	LatencyCompensationSamples int
	InputMonitoring            bool
	ClickEnabled               bool
	ClickVolume                float32
	MidiSyncEnabled            bool

	RecentMessages []string
}

// buildSnapshot is called from Snapshot() on a consumer thread, never from
// the audio thread. Peaks are read under a blocking lock against the audio
// thread's try-locked writer (spec.md §4.8: "consumers read with a
// blocking lock off the audio thread"); the recording/liveness fields come
// from the atomics the audio thread publishes every block; everything else
// is derived directly from engine/loop/metronome accessors.
func (e *Engine) buildSnapshot() Snapshot {
	e.snapshotMu.Lock()
	peaks := make([]float32, len(e.peaks))
	copy(peaks, e.peaks)
	e.snapshotMu.Unlock()

	liveMask := e.liveChannelMask.Load()

	s := Snapshot{
		Position:                   e.metronome.Position(),
		BPM:                        e.metronome.BPM(),
		IsRecording:                e.isRecording.Load(),
		RecordingLoopIdx:           int(e.recordingLoopIdx.Load()),
		DefaultQuantize:            e.defaultQuantize,
		LookbackBars:               e.cfg.LookbackBars,
		CrossfadeSamples:           e.cfg.CrossfadeSamples,
		LatencyCompensationSamples: e.cfg.LatencyCompensationSamples,
		InputMonitoring:            e.inputMonitoring,
		ClickEnabled:               e.click.Enabled(),
		ClickVolume:                e.click.Volume(),
		MidiSyncEnabled:            e.midiClock.Enabled(),
		RecentMessages:             e.log.Recent(),
	}

	s.Loops = make([]LoopSnapshot, len(e.loops))
	for i, l := range e.loops {
		lengthInBars := 0.0
		if l.LoopLength() > 0 {
			lengthInBars = float64(l.LoopLength()) / e.metronome.SamplesPerBar()
		}
		s.Loops[i] = LoopSnapshot{
			State:            l.State(),
			LoopLength:       l.LoopLength(),
			LayerCount:       len(l.Layers()),
			ActiveLayerCount: l.ActiveLayerCount(),
			Speed:            l.Speed(),
			Reversed:         l.Reversed(),
			PlayPos:          l.PlayPos(),
			LengthInBars:     lengthInBars,
			RecordedBPM:      l.RecordedBPM(),
			CurrentBPM:       l.CurrentBPM(),
		}
	}

	s.Channels = make([]ChannelSnapshot, len(e.channels))
	for i := range e.channels {
		s.Channels[i] = ChannelSnapshot{
			Peak: peaks[i],
			Live: liveMask&(1<<uint(i)) != 0,
		}
	}

	return s
}
