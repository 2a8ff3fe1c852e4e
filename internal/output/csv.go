// Package output writes trial results as CSV.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/abcd.report/internal/abcd"
	"github.com/banshee-data/abcd.report/internal/trials"
	"github.com/banshee-data/abcd.report/internal/uncertainty"
)

// Header returns the column names of the per-trial CSV.
func Header() []string {
	return []string{"A", "B", "C", "D", "CalcA", "CalcA StdDev"}
}

// CSVWriter wraps csv.Writer with methods for trial output.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteHeader writes the column header.
func (c *CSVWriter) WriteHeader() error {
	return c.w.Write(Header())
}

// WriteResult writes one trial row.
func (c *CSVWriter) WriteResult(r abcd.Result) error {
	return c.w.Write(FormatRow(r))
}

// Flush flushes buffered rows and reports any write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// FormatRow renders a result as A,B,C,D,CalcA,CalcA StdDev. Counts are
// printed as integers and the estimate in shortest 'g' form, so non-finite
// estimates come out as NaN, +Inf or -Inf.
func FormatRow(r abcd.Result) []string {
	return []string{
		formatCount(r.A),
		formatCount(r.B),
		formatCount(r.C),
		formatCount(r.D),
		uncertainty.FormatFloat(r.CalcA.Value),
		uncertainty.FormatFloat(r.CalcA.Error),
	}
}

// WriteResults writes the header followed by one row per result, in order.
func WriteResults(w io.Writer, results []abcd.Result) error {
	c := NewCSVWriter(w)
	if err := c.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		if err := c.WriteResult(r); err != nil {
			return fmt.Errorf("write trial %d: %w", r.Trial, err)
		}
	}
	return c.Flush()
}

// WriteSummary writes s as metric,value rows.
func WriteSummary(w io.Writer, s trials.Summary) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"metric", "value"},
		{"trials", strconv.Itoa(s.Trials)},
		{"converged", strconv.Itoa(s.Converged)},
		{"degenerate", strconv.Itoa(s.Degenerate)},
		{"mean_events", uncertainty.FormatFloat(s.MeanEvents)},
		{"mean_a", uncertainty.FormatFloat(s.MeanA)},
		{"mean_calc_a", uncertainty.FormatFloat(s.MeanCalcA)},
		{"stddev_calc_a", uncertainty.FormatFloat(s.StdDevCalcA)},
		{"mean_calc_a_error", uncertainty.FormatFloat(s.MeanCalcAError)},
		{"mean_pull", uncertainty.FormatFloat(s.MeanPull)},
		{"stddev_pull", uncertainty.FormatFloat(s.StdDevPull)},
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// formatCount prints whole counts without a fractional part.
func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
