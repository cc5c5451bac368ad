package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SpeckFleck/mocasinns/internal/config"
	"github.com/SpeckFleck/mocasinns/internal/storage"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	// model
	lattice    []int
	coupling   int
	degeneracy int
	seed       uint64
	observable string
	// metropolis
	betas        []float64
	replicas     int
	relaxation   int
	measurements int
	interval     int
	jointHist    bool
	// autocorrelation
	maxTime    int
	timeFactor int
	// wang-landau
	binWidth        int
	wlFinal         float64
	wlMultiplier    float64
	wlFlatness      float64
	wlSweep         int
	wlMaxSteps      int64
	keepCheckpoints int
	liveView        bool
	// plot and export
	outFile string
	svgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "mocasinns",
		Short:        "monte carlo simulations of statistical models",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mocasinns", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (trace, debug, info, warn, error)")

	wangLandauCmd := &cobra.Command{
		Use:   "wang-landau [model]",
		Short: "estimate the density of states",
		Args:  cobra.ExactArgs(1),
		RunE:  runWangLandau,
	}
	addRunFlags(wangLandauCmd)
	addWangLandauFlags(wangLandauCmd)
	wangLandauCmd.Flags().BoolVar(&liveView, "live", false, "follow the run in a terminal dashboard")

	resumeCmd := &cobra.Command{
		Use:   "resume [run_id]",
		Short: "continue an interrupted wang-landau run",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeWangLandau,
	}
	resumeCmd.Flags().IntVar(&keepCheckpoints, "keep-checkpoints", 3, "epoch checkpoints kept per run")
	resumeCmd.Flags().BoolVar(&liveView, "live", false, "follow the run in a terminal dashboard")

	metropolisCmd := &cobra.Command{
		Use:   "metropolis [model]",
		Short: "sample an observable at fixed temperatures",
		Args:  cobra.ExactArgs(1),
		RunE:  runMetropolis,
	}
	addRunFlags(metropolisCmd)
	addMetropolisFlags(metropolisCmd)
	metropolisCmd.Flags().IntVar(&replicas, "replicas", 1, "independent replicas run in parallel")
	metropolisCmd.Flags().BoolVar(&jointHist, "joint", false, "also save the joint (energy, magnetization) histogram per temperature")
	metropolisCmd.Flags().IntVar(&binWidth, "bin-width", 0, "energy bin width of the joint histogram (0 keeps every energy)")

	autocorrCmd := &cobra.Command{
		Use:   "autocorr [model]",
		Short: "measure the autocorrelation of an observable",
		Args:  cobra.ExactArgs(1),
		RunE:  runAutocorrelation,
	}
	addRunFlags(autocorrCmd)
	addMetropolisFlags(autocorrCmd)
	autocorrCmd.Flags().IntVar(&maxTime, "max-time", config.DefaultMaxTime, "largest lag in sweeps")
	autocorrCmd.Flags().IntVar(&timeFactor, "factor", config.DefaultTimeFactor, "number of windows averaged")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the plot to an SVG file")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE:  listPresets,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data and thermodynamics to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().Float64SliceVar(&betas, "beta", nil, "inverse temperatures for thermodynamics (default: run config)")
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	rootCmd.AddCommand(wangLandauCmd, resumeCmd, metropolisCmd, autocorrCmd, listCmd, plotCmd, presetsCmd, exportJSONCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntSliceVar(&lattice, "lattice", config.DefaultLattice, "lattice extents, e.g. 16,16")
	cmd.Flags().IntVar(&coupling, "coupling", config.DefaultCoupling, "ising coupling J")
	cmd.Flags().IntVar(&degeneracy, "degeneracy", config.DefaultDegeneracy, "ground state degeneracy (two-level)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&observable, "observable", config.DefaultObservable, "observable to measure")
}

func addMetropolisFlags(cmd *cobra.Command) {
	d := config.DefaultConfig().Metropolis
	cmd.Flags().Float64SliceVar(&betas, "beta", []float64{config.DefaultBeta}, "inverse temperatures")
	cmd.Flags().IntVar(&relaxation, "relax", d.RelaxationSteps, "relaxation steps")
	cmd.Flags().IntVar(&measurements, "measurements", d.MeasurementNumber, "number of measurements")
	cmd.Flags().IntVar(&interval, "interval", d.StepsBetweenMeasurement, "steps between measurements")
}

func addWangLandauFlags(cmd *cobra.Command) {
	d := config.DefaultConfig().WangLandau
	cmd.Flags().IntVar(&binWidth, "bin-width", 0, "energy bin width (0 keeps every energy)")
	cmd.Flags().Float64Var(&wlFinal, "final", d.ModificationFactorFinal, "final modification factor")
	cmd.Flags().Float64Var(&wlMultiplier, "multiplier", d.ModificationFactorMultiplier, "modification factor multiplier")
	cmd.Flags().Float64Var(&wlFlatness, "flatness", d.Flatness, "flatness threshold")
	cmd.Flags().IntVar(&wlSweep, "sweep", d.SweepSteps, "steps between flatness checks (0 = system size)")
	cmd.Flags().Int64Var(&wlMaxSteps, "max-steps", d.MaxSteps, "step limit (0 = unbounded)")
	cmd.Flags().IntVar(&keepCheckpoints, "keep-checkpoints", 3, "epoch checkpoints kept per run")
}

// resolveConfig layers the run configuration: defaults, then preset, then
// config file, then explicitly set flags.
func resolveConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(model, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
	}
	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg.Model = model

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("lattice", func() { cfg.Lattice = lattice })
	set("coupling", func() { cfg.Coupling = coupling })
	set("degeneracy", func() { cfg.Degeneracy = degeneracy })
	set("seed", func() { cfg.Seed = seed })
	set("observable", func() { cfg.Observable = observable })
	set("beta", func() { cfg.Betas = betas })
	set("replicas", func() { cfg.Replicas = replicas })
	set("relax", func() { cfg.Metropolis.RelaxationSteps = relaxation })
	set("measurements", func() { cfg.Metropolis.MeasurementNumber = measurements })
	set("interval", func() { cfg.Metropolis.StepsBetweenMeasurement = interval })
	set("max-time", func() { cfg.Autocorrelation.MaxTime = maxTime })
	set("factor", func() { cfg.Autocorrelation.Factor = timeFactor })
	set("bin-width", func() { cfg.BinWidth = binWidth })
	set("final", func() { cfg.WangLandau.ModificationFactorFinal = wlFinal })
	set("multiplier", func() { cfg.WangLandau.ModificationFactorMultiplier = wlMultiplier })
	set("flatness", func() { cfg.WangLandau.Flatness = wlFlatness })
	set("sweep", func() { cfg.WangLandau.SweepSteps = wlSweep })
	set("max-steps", func() { cfg.WangLandau.MaxSteps = wlMaxSteps })
	set("log-level", func() { cfg.LogLevel = logLevel })

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setupLogging(cfg)
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(cfg.Level())
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

// writeMetrics dumps the run's Prometheus registry next to its results.
func writeMetrics(run *storage.Run, reg *prometheus.Registry) {
	if err := prometheus.WriteToTextfile(run.Path(storage.MetricsFile), reg); err != nil {
		logrus.WithError(err).Warn("could not write metrics")
	}
}

func statusOf(ctx context.Context, err error) string {
	switch {
	case err != nil:
		return storage.StatusFailed
	case ctx.Err() != nil:
		return storage.StatusCanceled
	}
	return storage.StatusCompleted
}
