package abcd

// PrecisionThreshold is the smallest target relative error that switches a
// run into precision mode. Smaller non-negative targets are rejected by the
// configuration layer; negative targets mean fixed-count mode.
const PrecisionThreshold = 0.01

// StopPolicy decides when a trial has accumulated enough points.
type StopPolicy interface {
	// Done is consulted before each point is accumulated.
	Done(acc *Accumulator) bool
	// Satisfied reports whether the policy's own criterion holds, as
	// opposed to an external cap ending the trial.
	Satisfied(acc *Accumulator) bool
}

// FixedCount stops once N points have been accumulated.
type FixedCount struct {
	N int
}

func (p FixedCount) Done(acc *Accumulator) bool      { return acc.Total() >= p.N }
func (p FixedCount) Satisfied(acc *Accumulator) bool { return p.Done(acc) }

// Precision stops once every region's squared relative counting error, 1/N,
// is at most TargetRelErr2; a target of 0.1 needs 10 points per region. With
// a source that never fills some region this never stops; wrap it in Capped
// to bound the work.
type Precision struct {
	TargetRelErr2 float64
}

func (p Precision) Done(acc *Accumulator) bool {
	return acc.IsErrorBelow(p.TargetRelErr2)
}

func (p Precision) Satisfied(acc *Accumulator) bool { return p.Done(acc) }

// Capped ends a trial when Policy is done or MaxEvents points have been
// accumulated, whichever comes first. MaxEvents <= 0 disables the cap.
type Capped struct {
	Policy    StopPolicy
	MaxEvents int
}

func (p Capped) Done(acc *Accumulator) bool {
	if p.MaxEvents > 0 && acc.Total() >= p.MaxEvents {
		return true
	}
	return p.Policy.Done(acc)
}

func (p Capped) Satisfied(acc *Accumulator) bool { return p.Policy.Satisfied(acc) }

// NewPolicy selects precision mode when minRelError >= PrecisionThreshold and
// fixed-count mode with eventCount otherwise. minRelError is compared against
// 1/N directly, so it is a squared relative error. maxEvents > 0 caps either mode.
func NewPolicy(eventCount int, minRelError float64, maxEvents int) StopPolicy {
	var p StopPolicy = FixedCount{N: eventCount}
	if minRelError >= PrecisionThreshold {
		p = Precision{TargetRelErr2: minRelError}
	}
	if maxEvents > 0 {
		p = Capped{Policy: p, MaxEvents: maxEvents}
	}
	return p
}

// RunTrial accumulates points from src under policy and returns the
// resulting estimate. The optional interrupt is checked alongside the policy
// and ends the trial early without marking it converged.
func RunTrial(cuts Cuts, src PointSource, policy StopPolicy, interrupt StopFunc) Result {
	acc := NewAccumulator(cuts)
	acc.AccumulateFrom(src, func(a *Accumulator) bool {
		if interrupt != nil && interrupt(a) {
			return true
		}
		return policy.Done(a)
	})
	res := acc.Result()
	res.Converged = policy.Satisfied(acc)
	return res
}
