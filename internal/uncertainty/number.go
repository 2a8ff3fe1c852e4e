// Package uncertainty provides a value paired with an absolute uncertainty and
// the error-propagated arithmetic needed by counting estimators.
//
// Relative errors combine in quadrature for both multiplication and division.
// Operations never trap on a zero operand: a zero denominator or a zero value
// with an undefined relative error produces a non-finite Number (NaN or ±Inf
// in Value or Error), which IsFinite reports.
package uncertainty

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrNegativeError is returned by New when the supplied uncertainty is
// negative or NaN.
var ErrNegativeError = errors.New("uncertainty must be non-negative")

// Number is an immutable value with an absolute uncertainty.
type Number struct {
	Value float64 `json:"value"`
	Error float64 `json:"error"`
}

// FromCount returns a Poisson counting quantity: value n, error sqrt(n).
// A zero count yields (0, 0), whose relative error is undefined.
func FromCount(n int) Number {
	v := float64(n)
	return Number{Value: v, Error: math.Sqrt(v)}
}

// New returns an explicit (value, error) pair.
func New(value, err float64) (Number, error) {
	if err < 0 || math.IsNaN(err) {
		return Number{}, fmt.Errorf("%w: got %v", ErrNegativeError, err)
	}
	return Number{Value: value, Error: err}, nil
}

// RelativeError returns Error/|Value|.
// (0, 0) gives NaN; (0, e>0) gives +Inf.
func (n Number) RelativeError() float64 {
	return ratio(n.Error, math.Abs(n.Value))
}

// IsFinite reports whether both the value and the error are finite numbers.
func (n Number) IsFinite() bool {
	return isFinite(n.Value) && isFinite(n.Error)
}

// Mul returns a*b with relative errors added in quadrature.
func Mul(a, b Number) Number {
	return combine(a.Value*b.Value, a, b)
}

// Div returns a/b with relative errors added in quadrature. The propagation
// rule is the same as Mul: for independent inputs the relative error of a
// ratio and of a product coincide.
func Div(a, b Number) Number {
	return combine(ratio(a.Value, b.Value), a, b)
}

// Mul returns n*o.
func (n Number) Mul(o Number) Number { return Mul(n, o) }

// Div returns n/o.
func (n Number) Div(o Number) Number { return Div(n, o) }

// String renders "value ± error".
func (n Number) String() string {
	return FormatFloat(n.Value) + " ± " + FormatFloat(n.Error)
}

// FormatFloat renders f in the shortest representation that round-trips.
// Non-finite values render as NaN, +Inf or -Inf.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func combine(value float64, a, b Number) Number {
	ra := a.RelativeError()
	rb := b.RelativeError()
	rel := math.Sqrt(ra*ra + rb*rb)
	return Number{Value: value, Error: scaleError(rel, value)}
}

// scaleError converts a relative error back to an absolute one. A zero
// relative error stays zero even for an infinite value.
func scaleError(rel, value float64) float64 {
	if rel == 0 && !math.IsNaN(value) {
		return 0
	}
	return rel * math.Abs(value)
}

// ratio is num/den with the IEEE results spelled out so callers never depend
// on the platform's handling of a zero divisor.
func ratio(num, den float64) float64 {
	if den != 0 {
		return num / den
	}
	switch {
	case num == 0 || math.IsNaN(num):
		return math.NaN()
	case num > 0:
		return math.Inf(1)
	default:
		return math.Inf(-1)
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
