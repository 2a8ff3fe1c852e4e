package trials

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/abcd.report/internal/abcd"
)

// Summary describes the spread of estimates across a batch of trials.
// MeanA and the statistics over estimates and pulls only include
// non-degenerate trials, so MeanA and MeanCalcA describe the same trials.
type Summary struct {
	Trials     int `json:"trials"`
	Converged  int `json:"converged"`
	Degenerate int `json:"degenerate"`

	MeanEvents float64 `json:"mean_events"`
	MeanA      float64 `json:"mean_a"`

	MeanCalcA   float64 `json:"mean_calc_a"`
	StdDevCalcA float64 `json:"stddev_calc_a"`

	// MeanCalcAError is the average per-trial propagated uncertainty; it
	// should match StdDevCalcA when the error propagation is sound.
	MeanCalcAError float64 `json:"mean_calc_a_error"`

	MeanPull   float64 `json:"mean_pull"`
	StdDevPull float64 `json:"stddev_pull"`
}

// Summarize computes batch statistics over results.
func Summarize(results []abcd.Result) Summary {
	s := Summary{Trials: len(results)}
	if len(results) == 0 {
		return s
	}

	events := make([]float64, 0, len(results))
	counts := make([]float64, 0, len(results))
	calc := make([]float64, 0, len(results))
	calcErr := make([]float64, 0, len(results))
	pulls := make([]float64, 0, len(results))

	for _, r := range results {
		if r.Converged {
			s.Converged++
		}
		events = append(events, float64(r.Events))
		if r.Degenerate() {
			s.Degenerate++
			continue
		}
		counts = append(counts, r.A)
		calc = append(calc, r.CalcA.Value)
		calcErr = append(calcErr, r.CalcA.Error)
		if p := r.Pull(); !math.IsNaN(p) {
			pulls = append(pulls, p)
		}
	}

	s.MeanEvents = stat.Mean(events, nil)
	s.MeanA, _ = meanStdDev(counts)
	s.MeanCalcA, s.StdDevCalcA = meanStdDev(calc)
	s.MeanCalcAError, _ = meanStdDev(calcErr)
	s.MeanPull, s.StdDevPull = meanStdDev(pulls)
	return s
}

// meanStdDev returns the mean and sample standard deviation, with (0, 0) for
// an empty slice and a zero deviation for a single value.
func meanStdDev(xs []float64) (float64, float64) {
	switch len(xs) {
	case 0:
		return 0, 0
	case 1:
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}
