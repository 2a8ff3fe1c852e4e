// Command abcd runs repeated ABCD background-estimation closure tests and
// writes one CSV row per trial.
//
// Usage:
//
//	abcd -trials 1000 -events 100000 -xcut 0.5 -ycut 0.5 > trials.csv
//	abcd -min-rel-error 0.05 -max-events 10000000 -db runs.db -plot-dir plots
//
// Options may also come from a JSON file (-config) and ABCD_* environment
// variables; explicit flags win over the environment, which wins over the file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/banshee-data/abcd.report/internal/abcd"
	"github.com/banshee-data/abcd.report/internal/config"
	"github.com/banshee-data/abcd.report/internal/fsutil"
	"github.com/banshee-data/abcd.report/internal/monitoring"
	"github.com/banshee-data/abcd.report/internal/output"
	"github.com/banshee-data/abcd.report/internal/report"
	"github.com/banshee-data/abcd.report/internal/storage/sqlite"
	"github.com/banshee-data/abcd.report/internal/timeutil"
	"github.com/banshee-data/abcd.report/internal/trials"
	"github.com/banshee-data/abcd.report/internal/version"
)

// clock and outputFS are replaced in tests.
var (
	clock    timeutil.Clock    = timeutil.RealClock{}
	outputFS fsutil.FileSystem = fsutil.OSFileSystem{}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], env.ToMap(os.Environ()), os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("abcd: %v", err)
	}
}

// options are the flags that control where results go, as opposed to the
// run configuration itself.
type options struct {
	configPath  string
	outputPath  string
	summaryPath string
	dbPath      string
	plotDir     string
	htmlPath    string
	progress    bool
	quiet       bool
	showVersion bool
}

func run(ctx context.Context, args []string, environ map[string]string, stdout io.Writer) error {
	fs := flag.NewFlagSet("abcd", flag.ContinueOnError)
	var opts options
	fs.StringVar(&opts.configPath, "config", "", "Path to a JSON run configuration (e.g. "+config.DefaultConfigPath+")")
	fs.StringVar(&opts.outputPath, "output", "-", "Per-trial CSV output path ('-' for stdout)")
	fs.StringVar(&opts.summaryPath, "summary", "", "Optional summary CSV output path")
	fs.StringVar(&opts.dbPath, "db", "", "Optional SQLite database to record the run in")
	fs.StringVar(&opts.plotDir, "plot-dir", "", "Optional directory for PNG histograms")
	fs.StringVar(&opts.htmlPath, "html", "", "Optional path for an HTML chart report")
	fs.BoolVar(&opts.progress, "progress", false, "Log progress every 10% of trials")
	fs.BoolVar(&opts.quiet, "quiet", false, "Suppress diagnostic logging")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	runFlags := config.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version.String("abcd"))
		return nil
	}
	if opts.quiet {
		defer monitoring.Silence()()
	}

	cfg, err := config.Resolve(opts.configPath, environ, runFlags.Explicit())
	if err != nil {
		return err
	}
	if cfg.GetSeed() == 0 {
		seed := uint64(clock.Now().UnixNano())
		cfg.Seed = &seed
	}

	factory, err := cfg.SourceFactory()
	if err != nil {
		return err
	}
	plan := trials.Plan{
		Trials:    cfg.GetTrialCount(),
		Cuts:      cfg.Cuts(),
		Policy:    cfg.Policy(),
		BaseSeed:  cfg.GetSeed(),
		NewSource: factory,
	}

	if cfg.PrecisionMode() {
		monitoring.Logf("abcd: %d trials, precision mode (rel err %g, max events %d), cuts x=%g y=%g, seed %d",
			plan.Trials, cfg.GetMinRelError(), cfg.GetMaxEvents(), plan.Cuts.X, plan.Cuts.Y, plan.BaseSeed)
	} else {
		monitoring.Logf("abcd: %d trials, %d events each, cuts x=%g y=%g, seed %d",
			plan.Trials, cfg.GetEventCount(), plan.Cuts.X, plan.Cuts.Y, plan.BaseSeed)
	}

	runner := trials.NewRunner(cfg.GetWorkers())
	runner.Clock = clock
	if opts.progress {
		runner.ProgressEvery = max(1, plan.Trials/10)
	}

	start := clock.Now()
	results, err := runner.Run(ctx, plan)
	if err != nil {
		return fmt.Errorf("run trials: %w", err)
	}
	elapsed := clock.Since(start)

	if err := writeCSV(opts.outputPath, stdout, func(w io.Writer) error {
		return output.WriteResults(w, results)
	}); err != nil {
		return err
	}

	summary := trials.Summarize(results)
	monitoring.Logf("abcd: done in %v: converged %d/%d, degenerate %d, CalcA %g ± %g (mean error %g), pull %g ± %g",
		elapsed, summary.Converged, summary.Trials, summary.Degenerate,
		summary.MeanCalcA, summary.StdDevCalcA, summary.MeanCalcAError, summary.MeanPull, summary.StdDevPull)

	if opts.summaryPath != "" {
		if err := writeCSV(opts.summaryPath, stdout, func(w io.Writer) error {
			return output.WriteSummary(w, summary)
		}); err != nil {
			return err
		}
	}

	if opts.dbPath != "" {
		if err := saveRun(opts.dbPath, cfg, summary, results, elapsed); err != nil {
			return err
		}
	}

	if opts.plotDir != "" {
		paths, err := report.WritePNG(outputFS, opts.plotDir, results)
		if err != nil {
			return fmt.Errorf("write plots: %w", err)
		}
		for _, p := range paths {
			monitoring.Logf("abcd: wrote %s", p)
		}
	}

	if opts.htmlPath != "" {
		if err := fsutil.WriteWith(outputFS, opts.htmlPath, func(w io.Writer) error {
			return report.WriteHTML(w, results)
		}); err != nil {
			return err
		}
		monitoring.Logf("abcd: wrote %s", opts.htmlPath)
	}

	return nil
}

func saveRun(path string, cfg *config.RunConfig, summary trials.Summary, results []abcd.Result, elapsed time.Duration) error {
	store, err := sqlite.Open(path)
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer store.Close()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	rec := sqlite.NewRun(cfg.GetSeed(), cfgJSON, summary, elapsed)
	if err := store.SaveRun(rec, results); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	monitoring.Logf("abcd: stored run %s in %s", rec.RunID, path)
	return nil
}

// writeCSV writes to stdout when path is "-" or empty, and to a file otherwise.
func writeCSV(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	return fsutil.WriteWith(outputFS, path, write)
}
