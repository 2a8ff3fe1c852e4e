package abcd

import (
	"iter"
	"math"
)

// PointSource produces a lazy, possibly unbounded sequence of points.
// Next returns false once the sequence is exhausted. Sources are not
// rewindable; build a new one to start over.
type PointSource interface {
	Next() (Point, bool)
}

// StopFunc reports whether accumulation should end. It is consulted before
// each point is accumulated.
type StopFunc func(acc *Accumulator) bool

// Accumulator counts points per region for a single trial. It is not safe
// for concurrent use; each trial owns its own accumulator.
type Accumulator struct {
	cuts   Cuts
	counts [NumRegions]int
}

// NewAccumulator returns an empty accumulator for the given cuts.
func NewAccumulator(cuts Cuts) *Accumulator {
	return &Accumulator{cuts: cuts}
}

// Cuts returns the thresholds used for classification.
func (a *Accumulator) Cuts() Cuts { return a.cuts }

// Accumulate classifies p and increments the matching counter.
func (a *Accumulator) Accumulate(p Point) Region {
	r := a.cuts.Classify(p)
	a.counts[r]++
	return r
}

// AccumulateSeq consumes points from seq until it ends or stop returns true.
// A nil stop consumes the whole sequence. It returns the number of points
// accumulated by this call. Stop is checked after a point is yielded, so the
// point in hand when it fires is discarded; use AccumulateFrom to resume a
// source without losing points.
func (a *Accumulator) AccumulateSeq(seq iter.Seq[Point], stop StopFunc) int {
	n := 0
	for p := range seq {
		if stop != nil && stop(a) {
			break
		}
		a.Accumulate(p)
		n++
	}
	return n
}

// AccumulateFrom pulls points from src until it is exhausted or stop returns
// true. Stop is checked before each pull, so src is left positioned at the
// first point not accumulated.
func (a *Accumulator) AccumulateFrom(src PointSource, stop StopFunc) int {
	n := 0
	for stop == nil || !stop(a) {
		p, ok := src.Next()
		if !ok {
			break
		}
		a.Accumulate(p)
		n++
	}
	return n
}

// Points adapts a PointSource to a range-over-func sequence.
func Points(src PointSource) iter.Seq[Point] {
	return func(yield func(Point) bool) {
		for {
			p, ok := src.Next()
			if !ok || !yield(p) {
				return
			}
		}
	}
}

// Count returns the number of points accumulated in r.
func (a *Accumulator) Count(r Region) int {
	return a.counts[r]
}

// Counts returns the counters in A, B, C, D order.
func (a *Accumulator) Counts() [NumRegions]int {
	return a.counts
}

// Total returns the number of points accumulated across all regions.
func (a *Accumulator) Total() int {
	return a.counts[RegionA] + a.counts[RegionB] + a.counts[RegionC] + a.counts[RegionD]
}

// IsErrorBelow reports whether every region's squared relative counting
// error, 1/N, is at most targetRelErr2. An empty region has an infinite
// relative error and is never below the target.
func (a *Accumulator) IsErrorBelow(targetRelErr2 float64) bool {
	for _, n := range a.counts {
		if inverseCount(n) > targetRelErr2 {
			return false
		}
	}
	return true
}

// Result snapshots the counters and computes the estimate for A.
func (a *Accumulator) Result() Result {
	return NewResult(a.counts[RegionA], a.counts[RegionB], a.counts[RegionC], a.counts[RegionD])
}

func inverseCount(n int) float64 {
	if n == 0 {
		return math.Inf(1)
	}
	return 1 / float64(n)
}
