package loop

import "github.com/loopworks/beatcapture/pkg/metronome"

// MuteAction selects which way a pending mute slot should move the loop.
type MuteAction int

const (
	MuteOn MuteAction = iota
	MuteOff
	MuteToggle
)

type pendingCapture struct {
	set             bool
	deadline        uint64
	quantize        metronome.Quantize
	lookbackSamples int
}

type pendingRecord struct {
	set      bool
	deadline uint64
	quantize metronome.Quantize
	stop     bool
}

type pendingMute struct {
	set      bool
	deadline uint64
	quantize metronome.Quantize
	action   MuteAction
}

type pendingOverdub struct {
	set      bool
	deadline uint64
	quantize metronome.Quantize
	stop     bool
}

type pendingReverse struct {
	set      bool
	deadline uint64
	quantize metronome.Quantize
}

type pendingSpeed struct {
	set      bool
	deadline uint64
	quantize metronome.Quantize
	speed    float64
}

type pendingUndo struct {
	set      bool
	deadline uint64
	quantize metronome.Quantize
	redo     bool
	count    int
}

type pendingClear struct {
	set      bool
	deadline uint64
	quantize metronome.Quantize
}

// PendingState holds at most one pending operation per slot. Slots are
// independent of one another; writing to a slot overwrites whatever was
// previously pending there (last write wins), letting a performer change
// their mind before the deadline hits. Slots are value types tagged with a
// set flag rather than pointers: Set* is called from drainCommands on the
// audio thread, so scheduling an operation must never heap-allocate (the
// same discipline command.Queue's value-type Command follows).
type PendingState struct {
	capture pendingCapture
	record  pendingRecord
	mute    pendingMute
	overdub pendingOverdub
	reverse pendingReverse
	speed   pendingSpeed
	undo    pendingUndo
	clear   pendingClear
}

// HasPending reports whether any slot currently holds an operation.
func (p *PendingState) HasPending() bool {
	return p.capture.set || p.record.set || p.mute.set ||
		p.overdub.set || p.reverse.set || p.speed.set ||
		p.undo.set || p.clear.set
}

// SetCapture schedules a capture; lookbackSamples of 0 means "use the
// engine's default lookback".
func (p *PendingState) SetCapture(deadline uint64, q metronome.Quantize, lookbackSamples int) {
	p.capture = pendingCapture{set: true, deadline: deadline, quantize: q, lookbackSamples: lookbackSamples}
}

// SetRecord schedules a classic record start (stop=false) or stop (stop=true).
func (p *PendingState) SetRecord(deadline uint64, q metronome.Quantize, stop bool) {
	p.record = pendingRecord{set: true, deadline: deadline, quantize: q, stop: stop}
}

// SetMute schedules a mute/unmute/toggle.
func (p *PendingState) SetMute(deadline uint64, q metronome.Quantize, action MuteAction) {
	p.mute = pendingMute{set: true, deadline: deadline, quantize: q, action: action}
}

// SetOverdub schedules an overdub start (stop=false) or stop (stop=true).
func (p *PendingState) SetOverdub(deadline uint64, q metronome.Quantize, stop bool) {
	p.overdub = pendingOverdub{set: true, deadline: deadline, quantize: q, stop: stop}
}

// SetReverse schedules a direction toggle.
func (p *PendingState) SetReverse(deadline uint64, q metronome.Quantize) {
	p.reverse = pendingReverse{set: true, deadline: deadline, quantize: q}
}

// SetSpeed schedules a speed change.
func (p *PendingState) SetSpeed(deadline uint64, q metronome.Quantize, speed float64) {
	p.speed = pendingSpeed{set: true, deadline: deadline, quantize: q, speed: speed}
}

// SetUndo schedules an undo (redo=false) or redo (redo=true). Two requests
// in the same direction accumulate a count instead of replacing each
// other; switching direction replaces the slot and resets the count to 1.
func (p *PendingState) SetUndo(deadline uint64, q metronome.Quantize, redo bool) {
	if p.undo.set && p.undo.redo == redo {
		p.undo.deadline = deadline
		p.undo.quantize = q
		p.undo.count++
		return
	}
	p.undo = pendingUndo{set: true, deadline: deadline, quantize: q, redo: redo, count: 1}
}

// SetClear schedules a clear. A fired clear cancels every other pending
// slot on the same loop in the same sample.
func (p *PendingState) SetClear(deadline uint64, q metronome.Quantize) {
	p.clear = pendingClear{set: true, deadline: deadline, quantize: q}
}

// Cancel drops every pending slot.
func (p *PendingState) Cancel() {
	*p = PendingState{}
}

// FlushResult reports which slots fired on a given sample, so the engine
// can react to the ones it must fulfill itself (capture and classic
// record touch input channels and ActiveRecording state that the Loop
// does not own).
type FlushResult struct {
	Cleared bool

	CaptureFired           bool
	CaptureLookbackSamples int
	RecordStartFired       bool
	RecordStopFired        bool
}
