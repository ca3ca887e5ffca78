package stretch

import (
	"math"

	"github.com/loopworks/beatcapture/pkg/dsp"
	"github.com/loopworks/beatcapture/pkg/dsp/interpolation"
)

const (
	grainSize = 1024
	hopOut    = grainSize / 2
)

// Granular is a fixed-size overlap-add granular stretcher: each call reads
// one grainSize window from the raw input at the original sample rate,
// applies a raised-cosine window, and overlap-adds it with the tail of the
// previous grain to produce hopOut samples of output at the original
// pitch, while advancing through the input by hopOut*ratio samples. It is
// the default Stretcher wired into the loop engine.
type Granular struct {
	sampleRate float64
	ratio      float64

	window []float32
	tail   []float32
	grain  []float32

	readPos float64
}

// NewGranular creates a granular stretcher. Call Configure before first use.
func NewGranular() *Granular {
	g := &Granular{
		window: make([]float32, grainSize),
		tail:   make([]float32, hopOut),
		grain:  make([]float32, grainSize),
	}
	for i := range g.window {
		g.window[i] = float32(0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(grainSize-1)))
	}
	g.ratio = 1
	return g
}

// Configure sets the sample rate and the current tempo ratio
// (current_bpm/recorded_bpm). It does not reset grain/overlap state;
// Reset does that explicitly.
func (g *Granular) Configure(sampleRate, ratio float64) {
	g.sampleRate = sampleRate
	if ratio < 0.25 {
		ratio = 0.25
	}
	if ratio > 4.0 {
		ratio = 4.0
	}
	g.ratio = ratio
}

// Reset clears overlap and read-position state without deallocating.
func (g *Granular) Reset() {
	dsp.Clear(g.tail)
	dsp.Clear(g.grain)
	g.readPos = 0
}

// Process reads a windowed grain from the start of in (offset by the
// fractional read position carried from the previous call) and
// overlap-adds it onto out, producing up to hopOut samples. It reports
// hopOut*ratio samples of in as consumed (at most len(in)), so the next
// grain starts that far into the raw input.
func (g *Granular) Process(in, out []float32) (consumed, produced int) {
	if len(in) == 0 || len(out) == 0 {
		return 0, 0
	}

	dsp.Clear(g.grain)
	maxIdx := len(in) - 1
	pos := g.readPos
	for i := 0; i < grainSize; i++ {
		idx := int(pos)
		frac := float32(pos - math.Floor(pos))
		i0 := clampIdx(idx-1, maxIdx)
		i1 := clampIdx(idx, maxIdx)
		i2 := clampIdx(idx+1, maxIdx)
		i3 := clampIdx(idx+2, maxIdx)
		g.grain[i] = interpolation.Hermite(in[i0], in[i1], in[i2], in[i3], frac) * g.window[i]
		pos++
	}
	advance := g.readPos + float64(hopOut)*g.ratio
	consumed = int(advance)
	if consumed > len(in) {
		consumed = len(in)
	}
	g.readPos = advance - math.Floor(advance)

	produced = hopOut
	if produced > len(out) {
		produced = len(out)
	}
	for i := 0; i < produced; i++ {
		out[i] = g.grain[i] + g.tail[i]
	}
	copy(g.tail, g.grain[hopOut:])

	return consumed, produced
}

func clampIdx(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}
