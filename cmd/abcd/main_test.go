package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/abcd.report/internal/config"
	"github.com/banshee-data/abcd.report/internal/fsutil"
	"github.com/banshee-data/abcd.report/internal/monitoring"
	"github.com/banshee-data/abcd.report/internal/storage/sqlite"
	"github.com/banshee-data/abcd.report/internal/timeutil"
)

func runQuiet(t *testing.T, args []string, environ map[string]string) (string, error) {
	t.Helper()
	defer monitoring.Silence()()
	var out bytes.Buffer
	err := run(context.Background(), args, environ, &out)
	return out.String(), err
}

func TestRun_WritesOneRowPerTrial(t *testing.T) {
	out, err := runQuiet(t, []string{"-trials", "5", "-events", "1000", "-seed", "7", "-workers", "2"}, nil)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header + 5 rows, got %d lines:\n%s", len(lines), out)
	}
	if lines[0] != "A,B,C,D,CalcA,CalcA StdDev" {
		t.Errorf("header = %q", lines[0])
	}
	for _, l := range lines[1:] {
		if n := len(strings.Split(l, ",")); n != 6 {
			t.Errorf("row %q has %d columns, want 6", l, n)
		}
	}
}

func TestRun_SameSeedSameOutput(t *testing.T) {
	args := []string{"-trials", "4", "-events", "500", "-seed", "99"}
	first, err := runQuiet(t, append(args, "-workers", "1"), nil)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	second, err := runQuiet(t, append(args, "-workers", "4"), nil)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if first != second {
		t.Errorf("output differs between runs with the same seed:\n%s\nvs\n%s", first, second)
	}
}

func TestRun_EnvironmentAndFlagPrecedence(t *testing.T) {
	environ := map[string]string{"ABCD_TRIAL_COUNT": "3", "ABCD_EVENT_COUNT": "100", "ABCD_SEED": "1"}

	out, err := runQuiet(t, nil, environ)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if n := strings.Count(out, "\n"); n != 4 {
		t.Errorf("env trial count: got %d lines, want 4", n)
	}

	out, err = runQuiet(t, []string{"-trials", "2"}, environ)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if n := strings.Count(out, "\n"); n != 3 {
		t.Errorf("flag should override env: got %d lines, want 3", n)
	}
}

func TestRun_InvalidConfigFailsFast(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")

	_, err := runQuiet(t, []string{"-events", "0", "-db", dbPath}, nil)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, statErr := os.Stat(dbPath); !os.IsNotExist(statErr) {
		t.Error("no output should be created before the configuration is valid")
	}

	_, err = runQuiet(t, []string{"-min-rel-error", "0.001"}, nil)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for a sub-threshold error target, got %v", err)
	}
}

func TestRun_AllOutputs(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "trials.csv")
	summaryPath := filepath.Join(dir, "summary.csv")
	dbPath := filepath.Join(dir, "runs.db")
	plotDir := filepath.Join(dir, "plots")
	htmlPath := filepath.Join(dir, "report.html")

	out, err := runQuiet(t, []string{
		"-trials", "6", "-events", "2000", "-seed", "3",
		"-output", csvPath, "-summary", summaryPath, "-db", dbPath,
		"-plot-dir", plotDir, "-html", htmlPath,
	}, nil)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if out != "" {
		t.Errorf("stdout should be empty when -output is a file, got %q", out)
	}

	for _, p := range []string{csvPath, summaryPath, htmlPath, filepath.Join(plotDir, "calc_a.png"), filepath.Join(plotDir, "pull.png")} {
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Errorf("expected non-empty %s (err=%v)", p, err)
		}
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	runs, err := store.ListRuns()
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns() = %d runs, err %v; want 1", len(runs), err)
	}
	if runs[0].BaseSeed != 3 || runs[0].TrialCount != 6 {
		t.Errorf("stored run = %+v", runs[0])
	}
	stored, err := store.ListTrials(runs[0].RunID)
	if err != nil || len(stored) != 6 {
		t.Errorf("ListTrials() = %d trials, err %v; want 6", len(stored), err)
	}
}

func TestRun_PrecisionModeWithCap(t *testing.T) {
	out, err := runQuiet(t, []string{"-trials", "2", "-min-rel-error", "0.2", "-max-events", "100000", "-seed", "5"}, nil)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if n := strings.Count(out, "\n"); n != 3 {
		t.Errorf("got %d lines, want 3", n)
	}
}

func TestRun_ZeroSeedUsesClock(t *testing.T) {
	old := clock
	defer func() { clock = old }()
	clock = timeutil.NewSteppingClock(time.Unix(0, 12345), time.Millisecond)

	dbPath := filepath.Join(t.TempDir(), "runs.db")
	if _, err := runQuiet(t, []string{"-trials", "1", "-events", "100", "-db", dbPath}, nil); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	runs, err := store.ListRuns()
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns() = %d runs, err %v", len(runs), err)
	}
	if runs[0].BaseSeed != 12345 {
		t.Errorf("BaseSeed = %d, want 12345 from the clock", runs[0].BaseSeed)
	}
	if runs[0].DurationMS <= 0 {
		t.Errorf("DurationMS = %d, want the elapsed time measured on the injected clock", runs[0].DurationMS)
	}
}

func TestRun_Version(t *testing.T) {
	out, err := runQuiet(t, []string{"-version"}, nil)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.HasPrefix(out, "abcd ") {
		t.Errorf("version output = %q", out)
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	if _, err := runQuiet(t, []string{"-no-such-flag"}, nil); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestRun_OutputsToFileSystem(t *testing.T) {
	old := outputFS
	defer func() { outputFS = old }()
	mem := fsutil.NewMemoryFileSystem()
	outputFS = mem

	_, err := runQuiet(t, []string{"-trials", "3", "-events", "400", "-seed", "11",
		"-output", "trials.csv", "-summary", "summary.csv", "-html", "report.html"}, nil)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	data, err := mem.ReadFile("trials.csv")
	if err != nil {
		t.Fatalf("trials.csv not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "A,B,C,D,CalcA,CalcA StdDev\n") {
		t.Errorf("trials.csv = %q", data)
	}
	if data, err := mem.ReadFile("summary.csv"); err != nil || !strings.Contains(string(data), "trials,3\n") {
		t.Errorf("summary.csv = %q, err %v", data, err)
	}
	if _, err := mem.ReadFile("report.html"); err != nil {
		t.Errorf("report.html not written: %v", err)
	}
}
