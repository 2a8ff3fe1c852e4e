package source

import (
	"fmt"
	"math"
	"sort"
)

// Transform maps a uniform draw in [0,1) onto a coordinate.
type Transform func(r float64) float64

// expRate is the slope of the exponential falloff transform.
const expRate = 5.0

var (
	// Identity leaves the draw unchanged: a flat distribution.
	Identity Transform = func(r float64) float64 { return r }

	// Square piles points up towards zero.
	Square Transform = func(r float64) float64 { return r * r }

	// Sqrt piles points up towards one.
	Sqrt Transform = math.Sqrt

	// Exp is the inverse CDF of an exponential with rate expRate truncated to
	// [0,1), a steeply falling spectrum.
	Exp Transform = func(r float64) float64 {
		return -math.Log1p(-r*(1-math.Exp(-expRate))) / expRate
	}
)

var transforms = map[string]Transform{
	"identity": Identity,
	"square":   Square,
	"sqrt":     Sqrt,
	"exp":      Exp,
}

// LookupTransform returns the named transform.
func LookupTransform(name string) (Transform, error) {
	t, ok := transforms[name]
	if !ok {
		return nil, fmt.Errorf("unknown transform %q (valid: %v)", name, TransformNames())
	}
	return t, nil
}

// TransformNames returns the registered transform names in sorted order.
func TransformNames() []string {
	names := make([]string, 0, len(transforms))
	for n := range transforms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
