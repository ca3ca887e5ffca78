// Package command defines the engine's control-thread-to-audio-thread
// command vocabulary and the lock-free single-producer/single-consumer
// queue it travels through.
package command

import "github.com/loopworks/beatcapture/pkg/metronome"

// Op is the operation a ScheduleOp command requests.
type Op int

const (
	OpToggleMute Op = iota
	OpMute
	OpUnmute
	OpStartOverdub
	OpStopOverdub
	OpToggleReverse
	OpUndo
	OpRedo
	OpClear
)

// Kind discriminates Command's variants.
type Kind int

const (
	// ScheduleOp carries one of the Op values above.
	ScheduleOp Kind = iota
	// CaptureLoop requests a lookback capture into a loop.
	CaptureLoop
	// Record starts a classic record-from-silence.
	Record
	// StopRecord stops the in-progress classic recording.
	StopRecord
	// SetSpeed changes a loop's playback speed.
	SetSpeed
	// SetBpm changes the engine-wide tempo.
	SetBpm
	// CancelPending clears pending slots; LoopIdx < 0 means all loops.
	CancelPending
)

// Command is the tagged variant the control thread pushes and the audio
// thread drains. Only the fields relevant to Kind are meaningful; it is a
// plain value type so pushing one never allocates.
type Command struct {
	Kind     Kind
	LoopIdx  int
	Quantize metronome.Quantize

	Op Op // ScheduleOp

	LookbackSamples int // CaptureLoop; 0 means "use the configured default lookback"

	Speed float64 // SetSpeed
	BPM   float64 // SetBpm
}
