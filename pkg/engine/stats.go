package engine

import "sync/atomic"

// Stats are monitoring counters the audio thread increments and any
// thread may read, grounded on the teacher's BufferStats health-monitoring
// idiom (underruns/overruns/adjustments) applied to this engine's own
// drop/abort/skip events instead of buffer fill state.
type Stats struct {
	droppedCommands         uint64
	skippedSnapshotPublishes uint64
	captureAborts           uint64
	recordAborts            uint64
}

// DroppedCommands returns how many commands the producer's enqueue_command
// rejected because the SPSC queue was full.
func (s *Stats) DroppedCommands() uint64 {
	return atomic.LoadUint64(&s.droppedCommands)
}

// SkippedSnapshotPublishes returns how many blocks the audio thread
// skipped publishing a snapshot because the publish lock was contended.
func (s *Stats) SkippedSnapshotPublishes() uint64 {
	return atomic.LoadUint64(&s.skippedSnapshotPublishes)
}

// CaptureAborts returns how many CaptureLoop fulfillments aborted (no
// audio to capture, or no live input channels).
func (s *Stats) CaptureAborts() uint64 {
	return atomic.LoadUint64(&s.captureAborts)
}

// RecordAborts returns how many Record/StopRecord fulfillments aborted
// (already recording, or a stop/start mismatch).
func (s *Stats) RecordAborts() uint64 {
	return atomic.LoadUint64(&s.recordAborts)
}

func (s *Stats) incDroppedCommands()          { atomic.AddUint64(&s.droppedCommands, 1) }
func (s *Stats) incSkippedSnapshotPublishes() { atomic.AddUint64(&s.skippedSnapshotPublishes, 1) }
func (s *Stats) incCaptureAborts()            { atomic.AddUint64(&s.captureAborts, 1) }
func (s *Stats) incRecordAborts()             { atomic.AddUint64(&s.recordAborts, 1) }
