// Package loop implements the multi-layer audio loop: capture, overdub
// layering with undo/redo, playback with crossfade and reverse, and
// tempo-follow via an interchangeable time stretcher.
package loop

import (
	"math"

	"github.com/loopworks/beatcapture/pkg/stretch"
)

const (
	// MinSpeed and MaxSpeed bound both playback speed and the tempo ratio
	// fed to the time stretcher.
	MinSpeed = 0.25
	MaxSpeed = 4.0

	stretchRatioThreshold = 0.5
	stretchRefillSamples  = 2048
	stretchQueueCapacity  = 8192
)

// Loop owns an ordered list of layers and the playback/recording state
// that advances one sample at a time on the audio thread.
type Loop struct {
	layers           []Layer
	undone           []Layer // FIFO of deactivated layers, most recently undone last
	loopLength       int
	playPos          int
	fractionalPos    float64
	reversed         bool
	speed            float64
	crossfadeSamples int
	recordedBPM      float64
	currentBPM       float64
	state            State

	pending PendingState

	stretcher     stretch.Stretcher
	stretchActive bool
	rawPos        float64
	stretchQueue  *sampleQueue
	rawWindowBuf  []float32
	stretchOutBuf []float32

	// lastReadPos is the index process_sample last read from, captured
	// before it advances play_pos/raw_pos. record_sample writes here so
	// overdubs land on the sample that was just heard, not the one about
	// to be heard next.
	lastReadPos int
}

// New creates an empty loop. stretcher may be nil; time-stretched playback
// is then a silent no-op per the "stretcher unavailable" error rule.
func New(stretcher stretch.Stretcher) *Loop {
	return &Loop{
		speed:        1.0,
		state:        Empty,
		stretcher:    stretcher,
		stretchQueue: newSampleQueue(stretchQueueCapacity),
		rawWindowBuf: make([]float32, stretchRefillSamples),
		stretchOutBuf: make([]float32, stretchRefillSamples),
	}
}

// State returns the loop's coarse playback state.
func (l *Loop) State() State { return l.state }

// LoopLength returns the loop length in samples (0 when empty).
func (l *Loop) LoopLength() int { return l.loopLength }

// PlayPos returns the current integer play position.
func (l *Loop) PlayPos() int { return l.playPos }

// Speed returns the current playback speed multiplier.
func (l *Loop) Speed() float64 { return l.speed }

// Reversed reports whether the loop is currently playing backward.
func (l *Loop) Reversed() bool { return l.reversed }

// Layers returns the loop's layers. Callers must not mutate the result.
func (l *Loop) Layers() []Layer { return l.layers }

// ActiveLayerCount returns how many layers currently contribute to the mix.
func (l *Loop) ActiveLayerCount() int {
	n := 0
	for _, ly := range l.layers {
		if ly.Active {
			n++
		}
	}
	return n
}

// RecordedBPM and CurrentBPM report the tempo the loop was captured at and
// the tempo it is currently being played back at.
func (l *Loop) RecordedBPM() float64 { return l.recordedBPM }
func (l *Loop) CurrentBPM() float64  { return l.currentBPM }

// SetCrossfadeSamples configures the loop-seam crossfade length.
func (l *Loop) SetCrossfadeSamples(n int) {
	if n < 0 {
		n = 0
	}
	l.crossfadeSamples = n
}

// Pending exposes the loop's scheduler slots to the engine.
func (l *Loop) Pending() *PendingState { return &l.pending }

// LoadFromCapture installs audio as the base layer, setting loop_length =
// len(audio) and clearing all other layers and playback state.
func (l *Loop) LoadFromCapture(audio []float32, bpm float64) {
	l.layers = []Layer{{Samples: append([]float32(nil), audio...), Gain: 1, Active: true}}
	l.undone = nil
	l.loopLength = len(audio)
	l.playPos = 0
	l.fractionalPos = 0
	l.reversed = false
	l.speed = 1.0
	l.recordedBPM = bpm
	l.currentBPM = bpm
	l.stretchActive = false
	if l.stretcher != nil {
		l.stretcher.Reset()
	}
	l.stretchQueue.Clear()
	l.rawPos = 0
	if l.loopLength == 0 {
		l.state = Empty
		return
	}
	l.state = Playing
}

// AddLayer appends a layer, resizing audio to loop_length by truncation or
// zero-extension.
func (l *Loop) AddLayer(audio []float32) {
	if l.loopLength == 0 {
		l.LoadFromCapture(audio, l.currentBPM)
		return
	}
	l.layers = append(l.layers, Layer{Samples: resized(audio, l.loopLength), Gain: 1, Active: true})
}

// StartOverdub appends a new zero-filled layer and enters Recording.
func (l *Loop) StartOverdub() {
	if l.loopLength == 0 {
		return
	}
	l.layers = append(l.layers, newLayer(l.loopLength))
	l.state = Recording
}

// StopOverdub returns the loop to Playing.
func (l *Loop) StopOverdub() {
	if l.state == Recording {
		l.state = Playing
	}
}

// UndoLayer deactivates the most recent active non-base layer.
func (l *Loop) UndoLayer() {
	for i := len(l.layers) - 1; i >= 1; i-- {
		if l.layers[i].Active {
			l.layers[i].Active = false
			l.undone = append(l.undone, l.layers[i])
			return
		}
	}
}

// RedoLayer reactivates the earliest layer undo deactivated (FIFO).
func (l *Loop) RedoLayer() {
	if len(l.undone) == 0 {
		return
	}
	target := l.undone[0]
	l.undone = l.undone[1:]
	for i := range l.layers {
		if !l.layers[i].Active && sameLayer(l.layers[i], target) {
			l.layers[i].Active = true
			return
		}
	}
}

func sameLayer(a, b Layer) bool {
	if len(a.Samples) != len(b.Samples) {
		return false
	}
	// Layers are compared by identity of their backing slice header rather
	// than content: undo/redo only ever moves layers this Loop itself owns.
	return &a.Samples[0] == &b.Samples[0]
}

// Clear resets the loop to Empty, discarding all layers and pending ops.
func (l *Loop) Clear() {
	l.layers = nil
	l.undone = nil
	l.loopLength = 0
	l.playPos = 0
	l.fractionalPos = 0
	l.reversed = false
	l.speed = 1.0
	l.recordedBPM = 0
	l.currentBPM = 0
	l.state = Empty
	l.stretchActive = false
	if l.stretcher != nil {
		l.stretcher.Reset()
	}
	l.stretchQueue.Clear()
	l.rawPos = 0
	l.pending.Cancel()
}

// SetMute applies a mute/unmute/toggle directly (used by the scheduler
// when a mute slot fires, and available for immediate/Free application).
func (l *Loop) SetMute(action MuteAction) {
	if l.loopLength == 0 {
		return
	}
	switch action {
	case MuteOn:
		l.state = Muted
	case MuteOff:
		if l.state == Muted {
			l.state = Playing
		}
	case MuteToggle:
		if l.state == Muted {
			l.state = Playing
		} else if l.state == Playing {
			l.state = Muted
		}
	}
}

// ToggleReverse flips playback direction.
func (l *Loop) ToggleReverse() {
	l.reversed = !l.reversed
}

// SetSpeed sets playback speed, clamped to [MinSpeed, MaxSpeed].
func (l *Loop) SetSpeed(speed float64) {
	if speed < MinSpeed {
		speed = MinSpeed
	}
	if speed > MaxSpeed {
		speed = MaxSpeed
	}
	l.speed = speed
}

// SetCurrentBPM updates the tempo the loop is being played back at,
// activating or deactivating time stretch as needed. Transitioning in or
// out of stretched mode resets the stretcher and transfers the raw play
// position.
func (l *Loop) SetCurrentBPM(bpm float64) {
	l.currentBPM = bpm
	wasActive := l.stretchActive
	l.stretchActive = l.timeStretchActive()

	if l.stretchActive {
		ratio := l.currentBPM / l.recordedBPM
		if ratio < MinSpeed {
			ratio = MinSpeed
		}
		if ratio > MaxSpeed {
			ratio = MaxSpeed
		}
		if l.stretcher != nil {
			l.stretcher.Configure(0, ratio)
		}
	}

	if l.stretchActive != wasActive {
		if l.stretcher != nil {
			l.stretcher.Reset()
		}
		l.stretchQueue.Clear()
		if l.stretchActive {
			l.rawPos = float64(l.playPos)
		} else {
			if l.loopLength > 0 {
				l.playPos = int(l.rawPos) % l.loopLength
			}
			l.fractionalPos = 0
		}
	}
}

func (l *Loop) timeStretchActive() bool {
	return l.recordedBPM > 0 && l.currentBPM > 0 &&
		math.Abs(l.currentBPM-l.recordedBPM) > stretchRatioThreshold
}

func (l *Loop) crossfadeGain(pos int) float32 {
	cf := l.crossfadeSamples
	if cf <= 0 || l.loopLength <= 2*cf {
		return 1
	}
	if pos < cf {
		return float32(pos) / float32(cf)
	}
	if pos >= l.loopLength-cf {
		return float32(l.loopLength-1-pos) / float32(cf)
	}
	return 1
}

func (l *Loop) mixAt(pos int) float32 {
	var sum float32
	for _, ly := range l.layers {
		if ly.Active {
			sum += ly.Samples[pos] * ly.Gain
		}
	}
	return sum
}

// ProcessSample returns one output sample and advances playback. Silence
// is returned for an empty or muted loop (muted loops still advance).
func (l *Loop) ProcessSample() float32 {
	if l.loopLength == 0 {
		return 0
	}

	var sample float32
	if l.stretchActive {
		sample = l.processStretchedSample()
	} else {
		sample = l.processDirectSample()
	}

	if l.state == Muted {
		return 0
	}
	return sample
}

func (l *Loop) processDirectSample() float32 {
	readPos := l.playPos
	if l.reversed {
		readPos = l.loopLength - 1 - l.playPos
	}
	l.lastReadPos = readPos
	sample := l.mixAt(readPos) * l.crossfadeGain(readPos)

	l.fractionalPos += l.speed
	step := int(l.fractionalPos)
	if step != 0 {
		l.fractionalPos -= float64(step)
		l.playPos = ((l.playPos+step)%l.loopLength + l.loopLength) % l.loopLength
	}
	return sample
}

func (l *Loop) processStretchedSample() float32 {
	l.lastReadPos = int(l.rawPos) % l.loopLength
	l.ensureStretchOutput()
	s, ok := l.stretchQueue.Pop()
	if !ok {
		return 0
	}
	return s * l.crossfadeGain(l.lastReadPos)
}

func (l *Loop) ensureStretchOutput() {
	if l.stretcher == nil {
		return
	}
	need := int(math.Ceil(l.speed)) + 1
	for l.stretchQueue.Len() < need {
		n := stretchRefillSamples
		if n > l.loopLength {
			n = l.loopLength
		}
		window := l.fillRawWindow(n)
		consumed, produced := l.stretcher.Process(window, l.stretchOutBuf)
		if produced == 0 && consumed == 0 {
			break
		}
		l.stretchQueue.Push(l.stretchOutBuf[:produced])
		l.rawPos = math.Mod(l.rawPos+float64(consumed), float64(l.loopLength))
	}
}

func (l *Loop) fillRawWindow(n int) []float32 {
	buf := l.rawWindowBuf[:n]
	start := int(l.rawPos)
	for i := 0; i < n; i++ {
		buf[i] = l.mixAt((start + i) % l.loopLength)
	}
	return buf
}

// RecordSample adds input to the newest layer at the current read
// position, so overdubs stay aligned with underlying loop content
// regardless of stretch mode.
func (l *Loop) RecordSample(input float32) {
	if l.state != Recording || len(l.layers) == 0 {
		return
	}
	newest := &l.layers[len(l.layers)-1]
	newest.Samples[l.lastReadPos] += input
}

// FlushPending fires every slot whose deadline has been reached, in
// deterministic order: clear first (which cancels everything else and
// returns immediately), then capture, record, mute, overdub, reverse,
// speed, undo.
func (l *Loop) FlushPending(currentSample uint64) FlushResult {
	var result FlushResult

	if l.pending.clear.set && l.pending.clear.deadline <= currentSample {
		l.pending.clear.set = false
		l.Clear()
		result.Cleared = true
		return result
	}

	if c := l.pending.capture; c.set && c.deadline <= currentSample {
		l.pending.capture.set = false
		result.CaptureFired = true
		result.CaptureLookbackSamples = c.lookbackSamples
	}

	if r := l.pending.record; r.set && r.deadline <= currentSample {
		l.pending.record.set = false
		if r.stop {
			result.RecordStopFired = true
		} else {
			result.RecordStartFired = true
		}
	}

	if m := l.pending.mute; m.set && m.deadline <= currentSample {
		l.pending.mute.set = false
		l.SetMute(m.action)
	}

	if o := l.pending.overdub; o.set && o.deadline <= currentSample {
		l.pending.overdub.set = false
		if o.stop {
			l.StopOverdub()
		} else {
			l.StartOverdub()
		}
	}

	if rv := l.pending.reverse; rv.set && rv.deadline <= currentSample {
		l.pending.reverse.set = false
		l.ToggleReverse()
	}

	if sp := l.pending.speed; sp.set && sp.deadline <= currentSample {
		l.pending.speed.set = false
		l.SetSpeed(sp.speed)
	}

	if u := l.pending.undo; u.set && u.deadline <= currentSample {
		l.pending.undo.set = false
		for i := 0; i < u.count; i++ {
			if u.redo {
				l.RedoLayer()
			} else {
				l.UndoLayer()
			}
		}
	}

	return result
}
