package abcd

import (
	"fmt"
	"math"

	"github.com/banshee-data/abcd.report/internal/uncertainty"
)

// Estimate returns B*C/D with counting errors propagated in quadrature.
// The count in A does not enter the estimate. A zero in B, C or D yields a
// non-finite Number rather than a silent zero.
func Estimate(_, b, c, d int) uncertainty.Number {
	bc := uncertainty.Mul(uncertainty.FromCount(b), uncertainty.FromCount(c))
	return uncertainty.Div(bc, uncertainty.FromCount(d))
}

// Result is the outcome of one trial.
type Result struct {
	Trial int    `json:"trial"`
	Seed  uint64 `json:"seed"`

	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`

	// CalcA is the background estimate for region A.
	CalcA uncertainty.Number `json:"calc_a"`

	Events    int  `json:"events"`
	Converged bool `json:"converged"`
}

// NewResult builds a Result from the four region counts.
func NewResult(a, b, c, d int) Result {
	return Result{
		A:      float64(a),
		B:      float64(b),
		C:      float64(c),
		D:      float64(d),
		CalcA:  Estimate(a, b, c, d),
		Events: a + b + c + d,
	}
}

// Degenerate reports whether the estimate is non-finite, which happens when
// B, C or D was empty.
func (r Result) Degenerate() bool {
	return !r.CalcA.IsFinite()
}

// Pull returns (CalcA - A) / error(CalcA), the closure-test pull of the
// estimate against the observed count in A. Degenerate or zero-error
// estimates give NaN.
func (r Result) Pull() float64 {
	if r.Degenerate() || r.CalcA.Error == 0 {
		return math.NaN()
	}
	return (r.CalcA.Value - r.A) / r.CalcA.Error
}

func (r Result) String() string {
	return fmt.Sprintf("(A=%v, B=%v, C=%v, D=%v, BC/D=%s)", r.A, r.B, r.C, r.D, r.CalcA)
}
