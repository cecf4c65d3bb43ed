// Command imajin-run drives a reference simulation run from a YAML
// configuration, optionally emitting windowed photon/ADU telemetry. It is a
// thin external collaborator (SPEC_FULL.md §6): the simulation core never
// imports this package.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/leb-epfl/imajin/config"
	"github.com/leb-epfl/imajin/detector"
	"github.com/leb-epfl/imajin/optics"
	"github.com/leb-epfl/imajin/psf"
	"github.com/leb-epfl/imajin/rng"
	"github.com/leb-epfl/imajin/sample"
	"github.com/leb-epfl/imajin/simulator"
	"github.com/leb-epfl/imajin/source"
	"github.com/leb-epfl/imajin/statemachine"
	"github.com/leb-epfl/imajin/telemetry"
)

var (
	configPath = flag.String("config", "", "Path to a YAML config file (defaults embedded if omitted)")
	outputDir  = flag.String("out", "", "Directory to write telemetry.csv and config.yaml into (disabled if empty)")
	verbose    = flag.Bool("v", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Init(*configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := config.Cfg()

	rngSrc := rng.New(cfg.Simulation.Seed)

	xLim := [2]float64{float64(cfg.Geometry.XLim[0]), float64(cfg.Geometry.XLim[1])}
	yLim := [2]float64{float64(cfg.Geometry.YLim[0]), float64(cfg.Geometry.YLim[1])}

	src, err := source.NewUniformMono2D(cfg.Source.Power, cfg.Source.PowerMax, xLim, yLim)
	if err != nil {
		return fmt.Errorf("building source: %w", err)
	}

	smp, err := buildSample(cfg, src, rngSrc)
	if err != nil {
		return fmt.Errorf("building sample: %w", err)
	}

	p, err := psf.NewGaussian2D(cfg.PSF.FWHM)
	if err != nil {
		return fmt.Errorf("building psf: %w", err)
	}
	opt := optics.New(p)

	det, err := detector.NewSimpleCMOS(
		cfg.Detector.Baseline,
		detector.BitDepth(cfg.Detector.BitDepth),
		cfg.Detector.DarkNoise,
		cfg.Detector.NumPixels,
		cfg.Detector.QuantumEfficiency,
		cfg.Detector.Sensitivity,
	)
	if err != nil {
		return fmt.Errorf("building detector: %w", err)
	}

	simCfg := simulator.Config{
		Time:            0,
		Dt:              cfg.Physics.Dt,
		XLim:            cfg.Geometry.XLim,
		YLim:            cfg.Geometry.YLim,
		NumMeasurements: cfg.Simulation.NumMeasurements,
		Backup:          cfg.Simulation.Backup,
	}
	sim, err := simulator.New(simCfg, det, opt, smp, src, rngSrc)
	if err != nil {
		return fmt.Errorf("building simulator: %w", err)
	}

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		return fmt.Errorf("building telemetry output: %w", err)
	}
	if out != nil {
		if err := out.WriteConfig(cfg); err != nil {
			return fmt.Errorf("writing config.yaml: %w", err)
		}
	}
	proc := telemetry.NewProcessor(cfg.Telemetry.WindowDurationSec, cfg.Physics.Dt, out)
	sim.AddPostProcessor(proc.PostProcessor())
	defer proc.Close()

	frames, err := sim.Run(false)
	if err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}

	slog.Info("run complete",
		"measurements", frames.NumMeasurements,
		"height", frames.Height,
		"width", frames.Width,
	)
	return nil
}

// buildSample constructs a single saturating Fluorophore at the image
// center, driven by a two-state (off/on) continuous-time Markov chain whose
// on-rate grows linearly in irradiance — the simplest non-trivial reference
// sample a config-driven run can exercise.
func buildSample(cfg *config.Config, src source.Source, rngSrc *rng.Source) (sample.Sample, error) {
	cx := (float64(cfg.Geometry.XLim[0]) + float64(cfg.Geometry.XLim[1])) / 2
	cy := (float64(cfg.Geometry.YLim[0]) + float64(cfg.Geometry.YLim[1])) / 2

	rateConstants := [][]float64{
		{0, 0.1}, // off -> on: baseline
		{1.0, 0}, // on -> off: fixed
	}
	rateCoefficients := [][][][]float64{
		{ // l=0 (irradiance)
			{ // m=1 (linear term)
				{0, 1e-4},
				{0, 0},
			},
		},
	}
	irradiance := src.Irradiance(cx, cy)
	sm, err := statemachine.New(0, rateConstants, rateCoefficients, []float64{irradiance}, rngSrc)
	if err != nil {
		return nil, err
	}

	fl, err := sample.NewFluorophore(cx, cy, 0, 1e-16, 1e-9, 0.8, 5.5e-7, 1, sm)
	if err != nil {
		return nil, err
	}
	return sample.NewEmitters([]sample.Emitter{fl}, false, rngSrc), nil
}
