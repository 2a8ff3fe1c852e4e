// Package abcd implements the ABCD data-driven background estimate.
//
// The plane is split into four regions by two cuts. Looking at the unit
// square with (0,0) in the lower left corner:
//
//	=========
//	| A | B |
//	=========
//	| C | D |
//	=========
//
// Points are counted per region by an Accumulator and the background in A is
// estimated from the other three regions as B*C/D.
package abcd

import "fmt"

// Point is a single observation in the ABCD plane.
type Point struct {
	X float64
	Y float64
}

// Region labels one of the four quadrants defined by the cuts.
type Region int

const (
	RegionA Region = iota
	RegionB
	RegionC
	RegionD
)

// NumRegions is the number of regions in the plane.
const NumRegions = 4

// Regions lists all regions in counter order.
var Regions = [NumRegions]Region{RegionA, RegionB, RegionC, RegionD}

func (r Region) String() string {
	switch r {
	case RegionA:
		return "A"
	case RegionB:
		return "B"
	case RegionC:
		return "C"
	case RegionD:
		return "D"
	default:
		return fmt.Sprintf("Region(%d)", int(r))
	}
}

// Cuts holds the two thresholds that partition the plane.
type Cuts struct {
	X float64 `json:"x_cut"`
	Y float64 `json:"y_cut"`
}

// Classify assigns p to a region. A coordinate equal to its cut belongs to
// the lower/left side, so (X, Y) itself lands in C. NaN coordinates never
// compare greater than a cut and end up on the same side.
func (c Cuts) Classify(p Point) Region {
	if p.X > c.X {
		if p.Y > c.Y {
			return RegionB
		}
		return RegionD
	}
	if p.Y > c.Y {
		return RegionA
	}
	return RegionC
}
