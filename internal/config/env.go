package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "ABCD_"

// envConfig mirrors RunConfig with plain fields so the env parser can fill
// them. Which variables were present is tracked separately.
type envConfig struct {
	EventCount     int     `env:"EVENT_COUNT"`
	TrialCount     int     `env:"TRIAL_COUNT"`
	MinRelError    float64 `env:"MIN_REL_ERROR"`
	MaxEvents      int     `env:"MAX_EVENTS"`
	XCut           float64 `env:"X_CUT"`
	YCut           float64 `env:"Y_CUT"`
	Workers        int     `env:"WORKERS"`
	Seed           uint64  `env:"SEED"`
	Source         string  `env:"SOURCE"`
	XTransform     string  `env:"X_TRANSFORM"`
	YTransform     string  `env:"Y_TRANSFORM"`
	GaussianMeanX  float64 `env:"GAUSSIAN_MEAN_X"`
	GaussianMeanY  float64 `env:"GAUSSIAN_MEAN_Y"`
	GaussianSigma  float64 `env:"GAUSSIAN_SIGMA"`
	SignalFraction float64 `env:"SIGNAL_FRACTION"`
	SignalX        float64 `env:"SIGNAL_X"`
	SignalY        float64 `env:"SIGNAL_Y"`
	SignalSigma    float64 `env:"SIGNAL_SIGMA"`
}

// ParseEnv reads ABCD_* overrides from environ. A nil environ reads the
// process environment. Only variables that are present end up set in the
// returned config.
func ParseEnv(environ map[string]string) (*RunConfig, error) {
	var ec envConfig
	present := make(map[string]bool)
	opts := env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
		OnSet: func(tag string, value interface{}, _ bool) {
			if s, ok := value.(string); ok && s != "" {
				present[tag] = true
			}
		},
	}
	if err := env.ParseWithOptions(&ec, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := EmptyRunConfig()
	set := func(name string) bool { return present[EnvPrefix+name] }
	if set("EVENT_COUNT") {
		cfg.EventCount = ptrInt(ec.EventCount)
	}
	if set("TRIAL_COUNT") {
		cfg.TrialCount = ptrInt(ec.TrialCount)
	}
	if set("MIN_REL_ERROR") {
		cfg.MinRelError = ptrFloat64(ec.MinRelError)
	}
	if set("MAX_EVENTS") {
		cfg.MaxEvents = ptrInt(ec.MaxEvents)
	}
	if set("X_CUT") {
		cfg.XCut = ptrFloat64(ec.XCut)
	}
	if set("Y_CUT") {
		cfg.YCut = ptrFloat64(ec.YCut)
	}
	if set("WORKERS") {
		cfg.Workers = ptrInt(ec.Workers)
	}
	if set("SEED") {
		cfg.Seed = ptrUint64(ec.Seed)
	}
	if set("SOURCE") {
		cfg.Source = ptrString(ec.Source)
	}
	if set("X_TRANSFORM") {
		cfg.XTransform = ptrString(ec.XTransform)
	}
	if set("Y_TRANSFORM") {
		cfg.YTransform = ptrString(ec.YTransform)
	}
	if set("GAUSSIAN_MEAN_X") {
		cfg.GaussianMeanX = ptrFloat64(ec.GaussianMeanX)
	}
	if set("GAUSSIAN_MEAN_Y") {
		cfg.GaussianMeanY = ptrFloat64(ec.GaussianMeanY)
	}
	if set("GAUSSIAN_SIGMA") {
		cfg.GaussianSigma = ptrFloat64(ec.GaussianSigma)
	}
	if set("SIGNAL_FRACTION") {
		cfg.SignalFraction = ptrFloat64(ec.SignalFraction)
	}
	if set("SIGNAL_X") {
		cfg.SignalX = ptrFloat64(ec.SignalX)
	}
	if set("SIGNAL_Y") {
		cfg.SignalY = ptrFloat64(ec.SignalY)
	}
	if set("SIGNAL_SIGMA") {
		cfg.SignalSigma = ptrFloat64(ec.SignalSigma)
	}
	return cfg, nil
}
