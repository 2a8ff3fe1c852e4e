package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/abcd.report/internal/abcd"
	"github.com/banshee-data/abcd.report/internal/source"
)

// DefaultConfigPath is the path to the canonical run defaults file.
const DefaultConfigPath = "config/run.defaults.json"

// Source kinds accepted by RunConfig.Source.
const (
	SourceUniform  = "uniform"
	SourceGaussian = "gaussian"
)

// ErrInvalidConfig is wrapped by every ConfigurationError.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigurationError reports a rejected configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfig }

func invalid(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// RunConfig holds the options for a batch of ABCD trials. Unset (nil) fields
// fall back to the defaults returned by the Get* methods, so partial JSON
// files are safe.
type RunConfig struct {
	// Stopping
	EventCount  *int     `json:"event_count,omitempty"`
	TrialCount  *int     `json:"trial_count,omitempty"`
	MinRelError *float64 `json:"min_rel_error,omitempty"`
	MaxEvents   *int     `json:"max_events,omitempty"`

	// Regions
	XCut *float64 `json:"x_cut,omitempty"`
	YCut *float64 `json:"y_cut,omitempty"`

	// Execution
	Workers *int    `json:"workers,omitempty"`
	Seed    *uint64 `json:"seed,omitempty"`

	// Point source
	Source        *string  `json:"source,omitempty"`
	XTransform    *string  `json:"x_transform,omitempty"`
	YTransform    *string  `json:"y_transform,omitempty"`
	GaussianMeanX *float64 `json:"gaussian_mean_x,omitempty"`
	GaussianMeanY *float64 `json:"gaussian_mean_y,omitempty"`
	GaussianSigma *float64 `json:"gaussian_sigma,omitempty"`

	// Signal injection
	SignalFraction *float64 `json:"signal_fraction,omitempty"`
	SignalX        *float64 `json:"signal_x,omitempty"`
	SignalY        *float64 `json:"signal_y,omitempty"`
	SignalSigma    *float64 `json:"signal_sigma,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrUint64(v uint64) *uint64    { return &v }
func ptrString(v string) *string    { return &v }

// EmptyRunConfig returns a RunConfig with all fields set to nil.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// DefaultRunConfig returns a RunConfig with every field populated from the
// built-in defaults.
func DefaultRunConfig() *RunConfig {
	c := EmptyRunConfig()
	return &RunConfig{
		EventCount:     ptrInt(c.GetEventCount()),
		TrialCount:     ptrInt(c.GetTrialCount()),
		MinRelError:    ptrFloat64(c.GetMinRelError()),
		MaxEvents:      ptrInt(c.GetMaxEvents()),
		XCut:           ptrFloat64(c.GetXCut()),
		YCut:           ptrFloat64(c.GetYCut()),
		Workers:        ptrInt(c.GetWorkers()),
		Seed:           ptrUint64(c.GetSeed()),
		Source:         ptrString(c.GetSource()),
		XTransform:     ptrString(c.GetXTransform()),
		YTransform:     ptrString(c.GetYTransform()),
		GaussianMeanX:  ptrFloat64(c.GetGaussianMeanX()),
		GaussianMeanY:  ptrFloat64(c.GetGaussianMeanY()),
		GaussianSigma:  ptrFloat64(c.GetGaussianSigma()),
		SignalFraction: ptrFloat64(c.GetSignalFraction()),
		SignalX:        ptrFloat64(c.GetSignalX()),
		SignalY:        ptrFloat64(c.GetSignalY()),
		SignalSigma:    ptrFloat64(c.GetSignalSigma()),
	}
}

// LoadRunConfig loads a RunConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *RunConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadRunConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that every set value is usable. Nothing is silently
// corrected: a value that would change the meaning of a run is rejected.
func (c *RunConfig) Validate() error {
	if c.EventCount != nil && *c.EventCount <= 0 {
		return invalid("event_count", "must be positive, got %d", *c.EventCount)
	}
	if c.TrialCount != nil && *c.TrialCount <= 0 {
		return invalid("trial_count", "must be positive, got %d", *c.TrialCount)
	}
	if c.MinRelError != nil {
		v := *c.MinRelError
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid("min_rel_error", "must be finite, got %v", v)
		}
		if v >= 0 && v < abcd.PrecisionThreshold {
			return invalid("min_rel_error", "must be negative (disabled) or at least %v, got %v", abcd.PrecisionThreshold, v)
		}
	}
	if c.MaxEvents != nil && *c.MaxEvents < 0 {
		return invalid("max_events", "must be non-negative, got %d", *c.MaxEvents)
	}
	for name, v := range map[string]*float64{
		"x_cut":           c.XCut,
		"y_cut":           c.YCut,
		"gaussian_mean_x": c.GaussianMeanX,
		"gaussian_mean_y": c.GaussianMeanY,
		"signal_x":        c.SignalX,
		"signal_y":        c.SignalY,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return invalid(name, "must be finite, got %v", *v)
		}
	}
	if c.Workers != nil && *c.Workers <= 0 {
		return invalid("workers", "must be positive, got %d", *c.Workers)
	}
	if c.Source != nil {
		switch *c.Source {
		case SourceUniform, SourceGaussian:
		default:
			return invalid("source", "must be %q or %q, got %q", SourceUniform, SourceGaussian, *c.Source)
		}
	}
	if c.XTransform != nil {
		if _, err := source.LookupTransform(*c.XTransform); err != nil {
			return invalid("x_transform", "%v", err)
		}
	}
	if c.YTransform != nil {
		if _, err := source.LookupTransform(*c.YTransform); err != nil {
			return invalid("y_transform", "%v", err)
		}
	}
	if c.GaussianSigma != nil && !(*c.GaussianSigma > 0) {
		return invalid("gaussian_sigma", "must be positive, got %v", *c.GaussianSigma)
	}
	if c.SignalSigma != nil && !(*c.SignalSigma > 0) {
		return invalid("signal_sigma", "must be positive, got %v", *c.SignalSigma)
	}
	if c.SignalFraction != nil && !(*c.SignalFraction >= 0 && *c.SignalFraction <= 1) {
		return invalid("signal_fraction", "must be between 0 and 1, got %v", *c.SignalFraction)
	}
	return nil
}

// Merge copies every non-nil field of o over c.
func (c *RunConfig) Merge(o *RunConfig) {
	if o == nil {
		return
	}
	mergeField(&c.EventCount, o.EventCount)
	mergeField(&c.TrialCount, o.TrialCount)
	mergeField(&c.MinRelError, o.MinRelError)
	mergeField(&c.MaxEvents, o.MaxEvents)
	mergeField(&c.XCut, o.XCut)
	mergeField(&c.YCut, o.YCut)
	mergeField(&c.Workers, o.Workers)
	mergeField(&c.Seed, o.Seed)
	mergeField(&c.Source, o.Source)
	mergeField(&c.XTransform, o.XTransform)
	mergeField(&c.YTransform, o.YTransform)
	mergeField(&c.GaussianMeanX, o.GaussianMeanX)
	mergeField(&c.GaussianMeanY, o.GaussianMeanY)
	mergeField(&c.GaussianSigma, o.GaussianSigma)
	mergeField(&c.SignalFraction, o.SignalFraction)
	mergeField(&c.SignalX, o.SignalX)
	mergeField(&c.SignalY, o.SignalY)
	mergeField(&c.SignalSigma, o.SignalSigma)
}

func mergeField[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// Cuts returns the region thresholds.
func (c *RunConfig) Cuts() abcd.Cuts {
	return abcd.Cuts{X: c.GetXCut(), Y: c.GetYCut()}
}

// Policy returns the stopping policy described by the configuration.
func (c *RunConfig) Policy() abcd.StopPolicy {
	return abcd.NewPolicy(c.GetEventCount(), c.GetMinRelError(), c.GetMaxEvents())
}

// PrecisionMode reports whether trials stop on relative error rather than on
// event count.
func (c *RunConfig) PrecisionMode() bool {
	return c.GetMinRelError() >= abcd.PrecisionThreshold
}

// GetEventCount returns the event_count value or the default.
func (c *RunConfig) GetEventCount() int {
	if c.EventCount == nil {
		return 100000
	}
	return *c.EventCount
}

// GetTrialCount returns the trial_count value or the default.
func (c *RunConfig) GetTrialCount() int {
	if c.TrialCount == nil {
		return 20000
	}
	return *c.TrialCount
}

// GetMinRelError returns the min_rel_error value or the default (disabled).
func (c *RunConfig) GetMinRelError() float64 {
	if c.MinRelError == nil {
		return -1
	}
	return *c.MinRelError
}

// GetMaxEvents returns the max_events value or the default (no cap).
func (c *RunConfig) GetMaxEvents() int {
	if c.MaxEvents == nil {
		return 0
	}
	return *c.MaxEvents
}

// GetXCut returns the x_cut value or the default.
func (c *RunConfig) GetXCut() float64 {
	if c.XCut == nil {
		return 0.5
	}
	return *c.XCut
}

// GetYCut returns the y_cut value or the default.
func (c *RunConfig) GetYCut() float64 {
	if c.YCut == nil {
		return 0.5
	}
	return *c.YCut
}

// GetWorkers returns the workers value or GOMAXPROCS.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// GetSeed returns the seed value or 0, meaning derive one from the clock.
func (c *RunConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

// GetSource returns the source value or the default.
func (c *RunConfig) GetSource() string {
	if c.Source == nil {
		return SourceUniform
	}
	return *c.Source
}

// GetXTransform returns the x_transform value or the default.
func (c *RunConfig) GetXTransform() string {
	if c.XTransform == nil {
		return "identity"
	}
	return *c.XTransform
}

// GetYTransform returns the y_transform value or the default.
func (c *RunConfig) GetYTransform() string {
	if c.YTransform == nil {
		return "identity"
	}
	return *c.YTransform
}

// GetGaussianMeanX returns the gaussian_mean_x value or the default.
func (c *RunConfig) GetGaussianMeanX() float64 {
	if c.GaussianMeanX == nil {
		return 0.5
	}
	return *c.GaussianMeanX
}

// GetGaussianMeanY returns the gaussian_mean_y value or the default.
func (c *RunConfig) GetGaussianMeanY() float64 {
	if c.GaussianMeanY == nil {
		return 0.5
	}
	return *c.GaussianMeanY
}

// GetGaussianSigma returns the gaussian_sigma value or the default.
func (c *RunConfig) GetGaussianSigma() float64 {
	if c.GaussianSigma == nil {
		return 0.25
	}
	return *c.GaussianSigma
}

// GetSignalFraction returns the signal_fraction value or the default.
func (c *RunConfig) GetSignalFraction() float64 {
	if c.SignalFraction == nil {
		return 0
	}
	return *c.SignalFraction
}

// GetSignalX returns the signal_x value or the default (centre of A).
func (c *RunConfig) GetSignalX() float64 {
	if c.SignalX == nil {
		return 0.25
	}
	return *c.SignalX
}

// GetSignalY returns the signal_y value or the default (centre of A).
func (c *RunConfig) GetSignalY() float64 {
	if c.SignalY == nil {
		return 0.75
	}
	return *c.SignalY
}

// GetSignalSigma returns the signal_sigma value or the default.
func (c *RunConfig) GetSignalSigma() float64 {
	if c.SignalSigma == nil {
		return 0.05
	}
	return *c.SignalSigma
}
