// Package source provides point generators that feed the ABCD accumulator.
//
// Every generator owns its random stream. Trials running in parallel must be
// given separate generators built from separate seeds (see SeedFor); a
// generator is never shared between goroutines.
package source

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/abcd.report/internal/abcd"
)

// Fixed replays a fixed list of points. With Cycle set it starts over at the
// end of the list instead of ending the sequence.
type Fixed struct {
	Points []abcd.Point
	Cycle  bool
	next   int
}

// NewFixed returns a Fixed source over points.
func NewFixed(points ...abcd.Point) *Fixed {
	return &Fixed{Points: points}
}

// Next implements abcd.PointSource.
func (f *Fixed) Next() (abcd.Point, bool) {
	if len(f.Points) == 0 {
		return abcd.Point{}, false
	}
	if f.next >= len(f.Points) {
		if !f.Cycle {
			return abcd.Point{}, false
		}
		f.next = 0
	}
	p := f.Points[f.next]
	f.next++
	return p, true
}

// Function draws two independent uniform [0,1) numbers per point and maps
// them through per-axis transforms.
type Function struct {
	X, Y    Transform
	uniform distuv.Uniform
}

// NewFunction returns a Function source seeded with seed. Nil transforms
// default to Identity.
func NewFunction(seed uint64, x, y Transform) *Function {
	if x == nil {
		x = Identity
	}
	if y == nil {
		y = Identity
	}
	return &Function{
		X:       x,
		Y:       y,
		uniform: distuv.Uniform{Min: 0, Max: 1, Src: newPCG(seed)},
	}
}

// Next implements abcd.PointSource. The sequence never ends.
func (f *Function) Next() (abcd.Point, bool) {
	x := f.uniform.Rand()
	y := f.uniform.Rand()
	return abcd.Point{X: f.X(x), Y: f.Y(y)}, true
}

// Gaussian draws each coordinate from an independent normal distribution.
type Gaussian struct {
	x, y distuv.Normal
}

// NewGaussian returns a Gaussian source centred on (meanX, meanY) with the
// same sigma on both axes. Both axes share one seeded stream.
func NewGaussian(seed uint64, meanX, meanY, sigma float64) *Gaussian {
	src := newPCG(seed)
	return &Gaussian{
		x: distuv.Normal{Mu: meanX, Sigma: sigma, Src: src},
		y: distuv.Normal{Mu: meanY, Sigma: sigma, Src: src},
	}
}

// Next implements abcd.PointSource. The sequence never ends.
func (g *Gaussian) Next() (abcd.Point, bool) {
	return abcd.Point{X: g.x.Rand(), Y: g.y.Rand()}, true
}

// Mixture interleaves a signal source into a background source. Each point
// comes from Signal with probability Fraction.
type Mixture struct {
	Background abcd.PointSource
	Signal     abcd.PointSource
	Fraction   float64
	pick       distuv.Bernoulli
}

// NewMixture returns a Mixture whose signal/background choice is drawn from
// its own stream seeded with seed.
func NewMixture(seed uint64, background, signal abcd.PointSource, fraction float64) (*Mixture, error) {
	if fraction < 0 || fraction > 1 {
		return nil, fmt.Errorf("signal fraction must be in [0,1], got %v", fraction)
	}
	return &Mixture{
		Background: background,
		Signal:     signal,
		Fraction:   fraction,
		pick:       distuv.Bernoulli{P: fraction, Src: newPCG(seed)},
	}, nil
}

// Next implements abcd.PointSource. The mixture ends as soon as the chosen
// component ends.
func (m *Mixture) Next() (abcd.Point, bool) {
	if m.pick.Rand() == 1 {
		return m.Signal.Next()
	}
	return m.Background.Next()
}

func newPCG(seed uint64) *rand.PCG {
	return rand.NewPCG(seed, splitmix64(seed))
}
