package loop

// State is a Loop's coarse playback state.
type State int

const (
	// Empty loops hold no audio and produce silence.
	Empty State = iota
	// Playing loops play back their active layers each sample.
	Playing
	// Muted loops advance playback but contribute silence to the mix.
	Muted
	// Recording loops are playing back while also overdubbing a new layer.
	Recording
)

func (s State) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Playing:
		return "Playing"
	case Muted:
		return "Muted"
	case Recording:
		return "Recording"
	default:
		return "Unknown"
	}
}
