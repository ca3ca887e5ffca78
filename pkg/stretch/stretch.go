// Package stretch defines the tempo-stretch contract a Loop consumes when
// its current tempo diverges from the tempo it was recorded at, plus a
// default pitch-preserving implementation.
package stretch

// Stretcher is an interchangeable, pitch-preserving tempo-stretch
// algorithm. A Loop drives it from the audio thread, so Configure,
// Process and Reset must not allocate once constructed.
type Stretcher interface {
	// Configure sets the sample rate and tempo ratio (current_bpm /
	// recorded_bpm). A Loop calls it on every tempo update while stretched
	// playback is active, including the transition into it; it does not
	// clear grain/overlap state, which is Reset's job.
	Configure(sampleRate, ratio float64)

	// Process consumes up to len(in) raw samples and produces up to
	// len(out) stretched samples, returning how many of each it actually
	// used. Callers refill in from the loop's raw content and drain out
	// into the loop's stretched-output ring.
	Process(in, out []float32) (consumed, produced int)

	// Reset clears internal grain/overlap state without deallocating.
	Reset()
}
