package report

import (
	"fmt"
	"io"
	"path/filepath"

	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/abcd.report/internal/abcd"
	"github.com/banshee-data/abcd.report/internal/fsutil"
	"github.com/banshee-data/abcd.report/internal/monitoring"
)

// DefaultBins is the bucket count used by the PNG and HTML reports.
const DefaultBins = 50

const (
	calcAFile = "calc_a.png"
	pullFile  = "pull.png"
)

// WritePNG writes histograms of the estimates and of the pulls into dir on
// fsys and returns the paths written. A histogram with no finite input is
// skipped.
func WritePNG(fsys fsutil.FileSystem, dir string, results []abcd.Result) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}

	var written []string

	calc := CalcAValues(results)
	if len(calc) > 0 {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Background estimate BC/D (%d trials)", len(calc))
		p.X.Label.Text = "CalcA"
		p.Y.Label.Text = "Trials"
		h, err := plotter.NewHist(plotter.Values(calc), DefaultBins)
		if err != nil {
			return written, fmt.Errorf("calc_a histogram: %w", err)
		}
		p.Add(h)

		path := filepath.Join(dir, calcAFile)
		if err := savePNG(fsys, p, path); err != nil {
			return written, err
		}
		written = append(written, path)
	} else {
		monitoring.Logf("report: no finite estimates, skipping %s", calcAFile)
	}

	pulls := PullValues(results)
	if len(pulls) > 0 {
		p := plot.New()
		p.Title.Text = "Pull (BC/D - A) / error"
		p.X.Label.Text = "Pull"
		p.Y.Label.Text = "Density"
		h, err := plotter.NewHist(plotter.Values(pulls), DefaultBins)
		if err != nil {
			return written, fmt.Errorf("pull histogram: %w", err)
		}
		h.Normalize(1)
		p.Add(h)

		// A well-calibrated error gives pulls distributed as a unit normal.
		norm := plotter.NewFunction(distuv.UnitNormal.Prob)
		norm.Width = vg.Points(1.5)
		p.Add(norm)
		p.Legend.Add("unit normal", norm)

		path := filepath.Join(dir, pullFile)
		if err := savePNG(fsys, p, path); err != nil {
			return written, err
		}
		written = append(written, path)
	} else {
		monitoring.Logf("report: no defined pulls, skipping %s", pullFile)
	}

	return written, nil
}

func savePNG(fsys fsutil.FileSystem, p *plot.Plot, path string) error {
	wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return fsutil.WriteWith(fsys, path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}
