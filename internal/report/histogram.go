// Package report renders the distribution of trial estimates as PNG
// histograms (gonum/plot) and interactive HTML charts (go-echarts).
package report

import (
	"math"

	"github.com/banshee-data/abcd.report/internal/abcd"
)

// Bin is one histogram bucket covering [Lo, Hi).
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Histogram bins the finite entries of values into bins equal-width buckets.
// The last bucket is closed on the right. Non-finite values are ignored; an
// input with no finite values gives nil. When all values are equal a unit
// wide range centred on that value is used.
func Histogram(values []float64, bins int) []Bin {
	if bins < 1 {
		bins = 1
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		n++
	}
	if n == 0 {
		return nil
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi

	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// CalcAValues returns the estimates of the non-degenerate trials.
func CalcAValues(results []abcd.Result) []float64 {
	out := make([]float64, 0, len(results))
	for _, r := range results {
		if !r.Degenerate() {
			out = append(out, r.CalcA.Value)
		}
	}
	return out
}

// PullValues returns the defined pulls of results.
func PullValues(results []abcd.Result) []float64 {
	out := make([]float64, 0, len(results))
	for _, r := range results {
		if p := r.Pull(); !math.IsNaN(p) {
			out = append(out, p)
		}
	}
	return out
}
