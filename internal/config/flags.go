package config

import "flag"

// Flags holds the command-line values registered by RegisterFlags.
type Flags struct {
	fs *flag.FlagSet

	eventCount     *int
	trialCount     *int
	minRelError    *float64
	maxEvents      *int
	xCut           *float64
	yCut           *float64
	workers        *int
	seed           *uint64
	source         *string
	xTransform     *string
	yTransform     *string
	gaussianMeanX  *float64
	gaussianMeanY  *float64
	gaussianSigma  *float64
	signalFraction *float64
	signalX        *float64
	signalY        *float64
	signalSigma    *float64
}

// RegisterFlags registers the run options on fs. Flag defaults mirror the
// built-in defaults; only flags given explicitly override other layers.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	d := EmptyRunConfig()
	return &Flags{
		fs:             fs,
		eventCount:     fs.Int("events", d.GetEventCount(), "Number of background events in the plane (fixed-count mode)"),
		trialCount:     fs.Int("trials", d.GetTrialCount(), "Number of independent trials (how many times to repeat the ABCD plane)"),
		minRelError:    fs.Float64("min-rel-error", d.GetMinRelError(), "Target squared relative error (1/N) for each of A, B, C and D; >= 0.01 switches to precision mode"),
		maxEvents:      fs.Int("max-events", d.GetMaxEvents(), "Cap on events per trial (0 = unbounded)"),
		xCut:           fs.Float64("xcut", d.GetXCut(), "Where to put the cut along the x-axis"),
		yCut:           fs.Float64("ycut", d.GetYCut(), "Where to put the cut along the y-axis"),
		workers:        fs.Int("workers", d.GetWorkers(), "Number of trials to run concurrently"),
		seed:           fs.Uint64("seed", d.GetSeed(), "Base random seed (0 = derive from clock)"),
		source:         fs.String("source", d.GetSource(), "Point source: 'uniform' or 'gaussian'"),
		xTransform:     fs.String("x-transform", d.GetXTransform(), "Transform applied to uniform x draws"),
		yTransform:     fs.String("y-transform", d.GetYTransform(), "Transform applied to uniform y draws"),
		gaussianMeanX:  fs.Float64("gaussian-mean-x", d.GetGaussianMeanX(), "Gaussian source centre along x"),
		gaussianMeanY:  fs.Float64("gaussian-mean-y", d.GetGaussianMeanY(), "Gaussian source centre along y"),
		gaussianSigma:  fs.Float64("gaussian-sigma", d.GetGaussianSigma(), "Gaussian source width"),
		signalFraction: fs.Float64("signal-fraction", d.GetSignalFraction(), "Fraction of events drawn from the injected signal"),
		signalX:        fs.Float64("signal-x", d.GetSignalX(), "Injected signal centre along x"),
		signalY:        fs.Float64("signal-y", d.GetSignalY(), "Injected signal centre along y"),
		signalSigma:    fs.Float64("signal-sigma", d.GetSignalSigma(), "Injected signal width"),
	}
}

// Explicit returns a RunConfig holding only the flags that were set on the
// command line. Call after the flag set has been parsed.
func (f *Flags) Explicit() *RunConfig {
	cfg := EmptyRunConfig()
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "events":
			cfg.EventCount = ptrInt(*f.eventCount)
		case "trials":
			cfg.TrialCount = ptrInt(*f.trialCount)
		case "min-rel-error":
			cfg.MinRelError = ptrFloat64(*f.minRelError)
		case "max-events":
			cfg.MaxEvents = ptrInt(*f.maxEvents)
		case "xcut":
			cfg.XCut = ptrFloat64(*f.xCut)
		case "ycut":
			cfg.YCut = ptrFloat64(*f.yCut)
		case "workers":
			cfg.Workers = ptrInt(*f.workers)
		case "seed":
			cfg.Seed = ptrUint64(*f.seed)
		case "source":
			cfg.Source = ptrString(*f.source)
		case "x-transform":
			cfg.XTransform = ptrString(*f.xTransform)
		case "y-transform":
			cfg.YTransform = ptrString(*f.yTransform)
		case "gaussian-mean-x":
			cfg.GaussianMeanX = ptrFloat64(*f.gaussianMeanX)
		case "gaussian-mean-y":
			cfg.GaussianMeanY = ptrFloat64(*f.gaussianMeanY)
		case "gaussian-sigma":
			cfg.GaussianSigma = ptrFloat64(*f.gaussianSigma)
		case "signal-fraction":
			cfg.SignalFraction = ptrFloat64(*f.signalFraction)
		case "signal-x":
			cfg.SignalX = ptrFloat64(*f.signalX)
		case "signal-y":
			cfg.SignalY = ptrFloat64(*f.signalY)
		case "signal-sigma":
			cfg.SignalSigma = ptrFloat64(*f.signalSigma)
		}
	})
	return cfg
}

// Resolve layers the configuration sources in increasing precedence:
// built-in defaults, the JSON file at path (if non-empty), ABCD_*
// environment variables from environ, then explicit flags. The result is
// validated before it is returned.
func Resolve(path string, environ map[string]string, flags *RunConfig) (*RunConfig, error) {
	cfg := DefaultRunConfig()
	if path != "" {
		fileCfg, err := LoadRunConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}
	envCfg, err := ParseEnv(environ)
	if err != nil {
		return nil, err
	}
	cfg.Merge(envCfg)
	cfg.Merge(flags)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
