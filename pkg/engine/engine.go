// Package engine implements the per-sample loop-engine orchestrator: it
// drains commands from the control thread, flushes due scheduled
// operations, records and mixes every loop, and publishes a non-blocking
// state snapshot for other threads to read.
package engine

import (
	"sync"
	"sync/atomic"

	"github.com/loopworks/beatcapture/internal/enginelog"
	"github.com/loopworks/beatcapture/pkg/click"
	"github.com/loopworks/beatcapture/pkg/command"
	"github.com/loopworks/beatcapture/pkg/input"
	"github.com/loopworks/beatcapture/pkg/loop"
	"github.com/loopworks/beatcapture/pkg/metronome"
	"github.com/loopworks/beatcapture/pkg/midiclock"
	"github.com/loopworks/beatcapture/pkg/stretch"
)

// Engine is the audio-thread-resident orchestrator. It exclusively owns
// all loops, input channels, the metronome, the click generator, the MIDI
// clock, and the command queue's consumer end.
type Engine struct {
	cfg Config

	loops    []*loop.Loop
	channels []*input.Channel

	metronome *metronome.Clock
	midiClock *midiclock.Generator
	click     *click.Generator

	queue *command.Queue
	log   *enginelog.Log
	stats Stats

	activeRecording *ActiveRecording

	// captureMix/captureScratch are pre-sized at construction to
	// RingCapacity() samples so fulfillCapture, which runs on the audio
	// thread, never allocates: it slices into these instead of calling
	// make() per capture.
	captureMix     []float32
	captureScratch []float32

	defaultQuantize  metronome.Quantize
	inputMonitoring  bool

	onStateChanged func()
	onBeat         func(metronome.Position)
	onBar          func(metronome.Position)
	onBPMChange    func(float64)

	// Per spec.md §4.8, the audio thread never builds the full Snapshot or
	// blocks: every block it only try-locks snapshotMu to copy the current
	// per-channel peaks into a pre-sized slice, and stores the three
	// recording/liveness fields as atomics. Everything else a consumer
	// sees is derived live, off the audio thread, inside Snapshot().
	snapshotMu sync.Mutex
	peaks      []float32

	isRecording      atomic.Bool
	recordingLoopIdx atomic.Int32
	liveChannelMask  atomic.Uint64
}

// New constructs an engine from cfg, applying defensive defaults for
// anything left unset. midiSink receives MIDI clock/start/stop bytes
// directly from the audio thread; it must be realtime-safe or defer
// internally.
func New(cfg Config, midiSink midiclock.Sink) *Engine {
	cfg.Validate()

	e := &Engine{
		cfg:             cfg,
		queue:           command.NewQueue(cfg.CommandQueueCapacity),
		log:             enginelog.New(0),
		defaultQuantize: cfg.DefaultQuantize,
		inputMonitoring: cfg.InputMonitoring,
	}

	ringCapacity := cfg.RingCapacity()
	e.captureMix = make([]float32, ringCapacity)
	e.captureScratch = make([]float32, ringCapacity)
	e.peaks = make([]float32, cfg.NumInputChannels)

	windowSamples := int(cfg.LiveWindowMs / 1000 * cfg.SampleRate)
	e.channels = make([]*input.Channel, cfg.NumInputChannels)
	for i := range e.channels {
		e.channels[i] = input.New(ringCapacity, windowSamples, cfg.LiveThreshold)
	}

	e.loops = make([]*loop.Loop, cfg.MaxLoops)
	for i := range e.loops {
		e.loops[i] = loop.New(stretch.NewGranular())
		e.loops[i].SetCrossfadeSamples(cfg.CrossfadeSamples)
	}

	e.metronome = metronome.New(cfg.SampleRate, cfg.InitialBPM, cfg.BeatsPerBar)
	e.metronome.SetCallbacks(e.handleBeat, e.handleBar)

	e.midiClock = midiclock.New(cfg.SampleRate, cfg.InitialBPM, midiSink)
	e.midiClock.SetEnabled(cfg.MidiSyncEnabled)

	e.click = click.New(cfg.SampleRate)
	e.click.SetEnabled(cfg.ClickEnabled)
	e.click.SetVolume(cfg.ClickVolume)

	return e
}

// Stats returns the engine's monitoring counters.
func (e *Engine) Stats() *Stats { return &e.stats }

// Enqueue pushes a command onto the SPSC queue. Safe to call from exactly
// one producer goroutine; if multiple control sources exist they must
// serialize ahead of this call.
func (e *Engine) Enqueue(cmd command.Command) bool {
	if e.queue.Push(cmd) {
		return true
	}
	e.stats.incDroppedCommands()
	e.log.Append("command queue full, command dropped")
	return false
}

// SetOnMessage installs the human-readable log callback.
func (e *Engine) SetOnMessage(fn func(string)) { e.log.SetOnMessage(fn) }

// SetOnStateChanged installs the hint callback fired after every
// published snapshot.
func (e *Engine) SetOnStateChanged(fn func()) { e.onStateChanged = fn }

// SetOnBeat and SetOnBar install boundary-crossing callbacks.
func (e *Engine) SetOnBeat(fn func(metronome.Position)) { e.onBeat = fn }
func (e *Engine) SetOnBar(fn func(metronome.Position))  { e.onBar = fn }

// SetOnBPMChange installs the hook used to push tempo changes to an
// external transport.
func (e *Engine) SetOnBPMChange(fn func(float64)) { e.onBPMChange = fn }

// Snapshot builds the engine's current read-only state for a consumer
// thread. Per spec.md §4.8, only the per-channel peaks are read under the
// (briefly blocking) snapshot mutex; everything else is derived here, off
// the audio thread, straight from engine accessors and atomics — the
// audio thread itself never builds this struct or blocks to publish it.
func (e *Engine) Snapshot() Snapshot {
	return e.buildSnapshot()
}

func (e *Engine) handleBeat(pos metronome.Position) {
	e.click.OnBeat(pos)
	if e.onBeat != nil {
		e.onBeat(pos)
	}
}

func (e *Engine) handleBar(pos metronome.Position) {
	e.click.OnBar(pos)
	if e.onBar != nil {
		e.onBar(pos)
	}
}

// ProcessBlock is the host-driven entry point: inputs is per-channel
// (len(inputs) must equal the configured input channel count), output is
// mono, numSamples is the block's length.
func (e *Engine) ProcessBlock(inputs [][]float32, output []float32, numSamples int) {
	e.drainCommands()

	for i := 0; i < numSamples; i++ {
		output[i] = e.processSample(inputs, i)
	}

	currentSample := e.metronome.TotalSamples()
	for _, c := range e.channels {
		c.UpdateBreachState(currentSample)
	}

	e.publishSnapshot()
}

func (e *Engine) processSample(inputs [][]float32, i int) float32 {
	var liveMix float32
	for c, ch := range e.channels {
		var s float32
		if c < len(inputs) && i < len(inputs[c]) {
			s = inputs[c][i]
		}
		ch.WriteSample(s)
		if ch.IsLive() {
			liveMix += s
		}
	}

	if e.activeRecording != nil {
		e.activeRecording.Buffer = append(e.activeRecording.Buffer, liveMix)
	}

	currentSample := e.metronome.TotalSamples()
	for idx, l := range e.loops {
		if !l.Pending().HasPending() {
			continue
		}
		result := l.FlushPending(currentSample)
		if result.Cleared {
			continue
		}
		if result.CaptureFired {
			e.fulfillCapture(idx, result.CaptureLookbackSamples)
		}
		if result.RecordStartFired {
			e.fulfillRecordStart(idx)
		}
		if result.RecordStopFired {
			e.fulfillRecordStop(idx)
		}
	}

	var out float32
	for _, l := range e.loops {
		if l.State() == loop.Empty {
			continue
		}
		out += l.ProcessSample()
		if l.State() == loop.Recording {
			l.RecordSample(liveMix)
		}
	}

	out += e.click.NextSample()
	if e.inputMonitoring {
		out += liveMix
	}

	e.metronome.Advance(1)
	e.midiClock.Advance()

	return out
}

// publishSnapshot is the audio thread's only per-block touchpoint with
// consumer-facing state: it stores the three atomics spec.md §4.8 names
// (no lock needed) and, via a try-lock only, copies current peaks into a
// pre-sized slice. If the lock is contended the update is skipped for this
// block rather than blocked on — there is no snapshot the audio thread
// ever blocks to publish.
func (e *Engine) publishSnapshot() {
	if e.activeRecording != nil {
		e.isRecording.Store(true)
		e.recordingLoopIdx.Store(int32(e.activeRecording.LoopIdx))
	} else {
		e.isRecording.Store(false)
	}

	var liveMask uint64
	for i, c := range e.channels {
		if c.IsLive() {
			liveMask |= 1 << uint(i)
		}
	}
	e.liveChannelMask.Store(liveMask)

	if !e.snapshotMu.TryLock() {
		e.stats.incSkippedSnapshotPublishes()
		return
	}
	for i, c := range e.channels {
		e.peaks[i] = c.Peak()
	}
	e.snapshotMu.Unlock()

	if e.onStateChanged != nil {
		e.onStateChanged()
	}
}
