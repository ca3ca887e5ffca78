package engine

import (
	"github.com/loopworks/beatcapture/pkg/command"
	"github.com/loopworks/beatcapture/pkg/dsp"
	"github.com/loopworks/beatcapture/pkg/loop"
	"github.com/loopworks/beatcapture/pkg/metronome"
)

func (e *Engine) drainCommands() {
	for {
		cmd, ok := e.queue.Pop()
		if !ok {
			return
		}
		e.applyCommand(cmd)
	}
}

func (e *Engine) validLoopIdx(idx int) bool {
	return idx >= 0 && idx < len(e.loops)
}

func (e *Engine) deadlineFor(q metronome.Quantize) uint64 {
	return e.metronome.TotalSamples() + e.metronome.SamplesUntilBoundary(q)
}

func (e *Engine) applyCommand(cmd command.Command) {
	switch cmd.Kind {
	case command.ScheduleOp:
		e.applyScheduleOp(cmd)
	case command.CaptureLoop:
		if !e.validLoopIdx(cmd.LoopIdx) {
			return
		}
		e.loops[cmd.LoopIdx].Pending().SetCapture(e.deadlineFor(cmd.Quantize), cmd.Quantize, cmd.LookbackSamples)
	case command.Record:
		if !e.validLoopIdx(cmd.LoopIdx) {
			return
		}
		e.loops[cmd.LoopIdx].Pending().SetRecord(e.deadlineFor(cmd.Quantize), cmd.Quantize, false)
	case command.StopRecord:
		if !e.validLoopIdx(cmd.LoopIdx) {
			return
		}
		e.loops[cmd.LoopIdx].Pending().SetRecord(e.deadlineFor(cmd.Quantize), cmd.Quantize, true)
	case command.SetSpeed:
		if !e.validLoopIdx(cmd.LoopIdx) {
			return
		}
		e.loops[cmd.LoopIdx].Pending().SetSpeed(e.deadlineFor(cmd.Quantize), cmd.Quantize, cmd.Speed)
	case command.SetBpm:
		e.applyBPM(cmd.BPM)
	case command.CancelPending:
		e.cancelPending(cmd.LoopIdx)
	}
}

func (e *Engine) applyScheduleOp(cmd command.Command) {
	if !e.validLoopIdx(cmd.LoopIdx) {
		return
	}
	p := e.loops[cmd.LoopIdx].Pending()
	deadline := e.deadlineFor(cmd.Quantize)

	switch cmd.Op {
	case command.OpToggleMute:
		p.SetMute(deadline, cmd.Quantize, loop.MuteToggle)
	case command.OpMute:
		p.SetMute(deadline, cmd.Quantize, loop.MuteOn)
	case command.OpUnmute:
		p.SetMute(deadline, cmd.Quantize, loop.MuteOff)
	case command.OpStartOverdub:
		p.SetOverdub(deadline, cmd.Quantize, false)
	case command.OpStopOverdub:
		p.SetOverdub(deadline, cmd.Quantize, true)
	case command.OpToggleReverse:
		p.SetReverse(deadline, cmd.Quantize)
	case command.OpUndo:
		p.SetUndo(deadline, cmd.Quantize, false)
	case command.OpRedo:
		p.SetUndo(deadline, cmd.Quantize, true)
	case command.OpClear:
		p.SetClear(deadline, cmd.Quantize)
	}
}

func (e *Engine) cancelPending(loopIdx int) {
	if loopIdx < 0 {
		for _, l := range e.loops {
			l.Pending().Cancel()
		}
		return
	}
	if e.validLoopIdx(loopIdx) {
		e.loops[loopIdx].Pending().Cancel()
	}
}

func (e *Engine) applyBPM(bpm float64) {
	if bpm <= 0 {
		return
	}
	e.metronome.SetBPM(bpm)
	e.midiClock.SetBPM(e.cfg.SampleRate, bpm)
	if e.onBPMChange != nil {
		e.onBPMChange(bpm)
	}
	for _, l := range e.loops {
		if l.State() != loop.Empty {
			l.SetCurrentBPM(bpm)
		}
	}
}

// fulfillCapture implements §4.5's capture fulfillment: clamp lookback to
// the minimum availability across channels, sum every qualifying
// channel's read_from_past segment into the loop's base layer.
func (e *Engine) fulfillCapture(loopIdx int, lookbackSamplesOverride int) {
	lookback := lookbackSamplesOverride
	if lookback <= 0 {
		lookback = int(e.cfg.LookbackBars * e.metronome.SamplesPerBar())
	}

	minAvailable := -1
	for _, c := range e.channels {
		avail := int(c.Buffer().Available())
		if minAvailable < 0 || avail < minAvailable {
			minAvailable = avail
		}
	}
	if minAvailable >= 0 && lookback > minAvailable {
		lookback = minAvailable
	}
	if lookback <= 0 {
		e.stats.incCaptureAborts()
		e.log.Append("No audio to capture")
		return
	}

	samplesAgo := lookback + e.cfg.LatencyCompensationSamples
	captureStart := e.metronome.TotalSamples()
	if uint64(samplesAgo) < captureStart {
		captureStart -= uint64(samplesAgo)
	} else {
		captureStart = 0
	}

	// mix/scratch are pre-sized at construction (RingCapacity samples) and
	// reused here; lookback is always <= RingCapacity since it was just
	// clamped to minAvailable, which can never exceed a channel ring's
	// capacity. No allocation on this audio-thread path.
	mix := e.captureMix[:lookback]
	scratch := e.captureScratch[:lookback]
	dsp.Clear(mix)
	included := 0
	for _, c := range e.channels {
		if e.cfg.LiveThreshold > 0 && !c.BreachedSince(captureStart) {
			continue
		}
		c.Buffer().ReadFromPast(scratch, uint64(samplesAgo))
		dsp.Add(mix, scratch)
		included++
	}
	if included == 0 {
		e.stats.incCaptureAborts()
		e.log.Append("No live input channels to capture")
		return
	}

	e.loops[loopIdx].LoadFromCapture(mix, e.metronome.BPM())
}

func (e *Engine) fulfillRecordStart(loopIdx int) {
	if e.activeRecording != nil {
		e.stats.incRecordAborts()
		e.log.Append("Recording already active")
		return
	}
	e.loops[loopIdx].Clear()
	e.activeRecording = &ActiveRecording{LoopIdx: loopIdx, StartSample: e.metronome.TotalSamples()}
}

func (e *Engine) fulfillRecordStop(loopIdx int) {
	if e.activeRecording == nil {
		e.stats.incRecordAborts()
		e.log.Append("No active recording to stop")
		return
	}
	if e.activeRecording.LoopIdx != loopIdx {
		e.stats.incRecordAborts()
		e.log.Append("Stop mismatch: target loop differs from active recording")
		return
	}

	trim := e.cfg.LatencyCompensationSamples
	buf := e.activeRecording.Buffer
	if trim > len(buf) {
		trim = len(buf)
	}

	e.loops[loopIdx].LoadFromCapture(buf[trim:], e.metronome.BPM())
	e.activeRecording = nil
}
