package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SpeckFleck/mocasinns/internal/analysis"
	"github.com/SpeckFleck/mocasinns/internal/histogram"
	"github.com/SpeckFleck/mocasinns/internal/mc"
	"github.com/SpeckFleck/mocasinns/internal/metrics"
	"github.com/SpeckFleck/mocasinns/internal/metropolis"
	"github.com/SpeckFleck/mocasinns/internal/models"
	"github.com/SpeckFleck/mocasinns/internal/rng"
	"github.com/SpeckFleck/mocasinns/internal/storage"
	"github.com/SpeckFleck/mocasinns/internal/viz"
)

func runMetropolis(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	registry := models.NewRegistry()
	observe, err := registry.GetObservable(cfg.Observable)
	if err != nil {
		return err
	}
	factory := func(int) (mc.Configuration[int], error) {
		m, err := registry.GetModel(cfg.Model, cfg.ModelParams())
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	run, err := st.Create(storage.KindMetropolis, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	ens, err := metropolis.NewEnsemble[int](cfg.Metropolis, cfg.Replicas, rng.Key(cfg.Seed), factory,
		metropolis.WithLogger(logrus.WithField("run", run.ID())),
		metropolis.WithRecorder(rec),
	)
	if err != nil {
		return err
	}

	fmt.Printf("running metropolis on %s with %d replica(s) (%s)...\n", cfg.Model, ens.Replicas(), run.ID())
	start := time.Now()

	var samples [][]float64
	var table [][]string
	var runErr error
	for _, beta := range cfg.Betas {
		if ctx.Err() != nil {
			break
		}
		results, err := metropolis.RunEnsemble(ctx, ens, beta, observe)
		if err != nil {
			runErr = err
			break
		}

		var values []float64
		for replica, series := range results {
			for _, v := range series {
				values = append(values, float64(v))
				samples = append(samples, []float64{beta, float64(replica), float64(v)})
			}
		}
		if jointHist {
			bins, err := writeJointHistogram(ctx, ens, beta, cfg.BinWidth, run.Path(jointFile(beta)))
			if err != nil {
				runErr = err
				break
			}
			logrus.WithFields(logrus.Fields{"beta": beta, "bins": bins}).Info("joint histogram saved")
		}

		sum, err := analysis.Summarize(values)
		if errors.Is(err, analysis.ErrEmpty) {
			continue
		}
		table = append(table, []string{
			strconv.FormatFloat(beta, 'g', 6, 64),
			strconv.Itoa(sum.N),
			strconv.FormatFloat(sum.Mean, 'f', 6, 64),
			strconv.FormatFloat(sum.StdErr, 'e', 2, 64),
		})
	}
	elapsed := time.Since(start)

	if err := run.SaveSamples(storage.KindMetropolis, []string{"beta", "replica", cfg.Observable}, samples); err != nil {
		return err
	}
	writeMetrics(run, reg)
	status := statusOf(ctx, runErr)
	if err := run.Finish(status, map[string]float64{
		"temperatures":    float64(len(table)),
		"samples":         float64(len(samples)),
		"elapsed_seconds": elapsed.Seconds(),
	}); err != nil {
		return err
	}

	fmt.Println(viz.KeyValue(
		[2]string{"run id", run.ID()},
		[2]string{"status", viz.Status(status)},
		[2]string{"elapsed", elapsed.Round(time.Millisecond).String()},
	))
	fmt.Println()
	fmt.Println(viz.Table([]string{"BETA", "N", cfg.Observable, "STDERR"}, table))
	return runErr
}

func jointFile(beta float64) string {
	return "joint_" + strconv.FormatFloat(beta, 'g', -1, 64) + ".csv"
}

// writeJointHistogram samples the (energy, magnetization) distribution of
// every replica at beta and saves the merged histogram. Energies are
// grouped into bins of binWidth; zero keeps every energy.
func writeJointHistogram(ctx context.Context, ens *metropolis.Ensemble[int], beta float64, binWidth int, path string) (int, error) {
	energy, err := histogram.NewFixed(binWidth, 0)
	if err != nil {
		return 0, err
	}
	binning := histogram.PairBinning[int]{X: energy}
	h, err := metropolis.RunEnsembleHistogram(ctx, ens, beta, models.EnergyMagnetizationPair, binning)
	if err != nil {
		return 0, err
	}
	if err := h.SaveFile(path, histogram.PairCodec[int](), histogram.NumberCodec[int64]()); err != nil {
		return 0, err
	}
	return h.Len(), nil
}

func runAutocorrelation(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	registry := models.NewRegistry()
	observe, err := registry.GetObservable(cfg.Observable)
	if err != nil {
		return err
	}
	model, err := registry.GetModel(cfg.Model, cfg.ModelParams())
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	run, err := st.Create(storage.KindAutocorrelation, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	e, err := metropolis.New[int](cfg.Metropolis, model, rng.NewPartitioned(rng.Key(cfg.Seed)).Stream(rng.StreamMain),
		metropolis.WithLogger(logrus.WithField("run", run.ID())),
		metropolis.WithRecorder(metrics.NewRecorder(reg)),
	)
	if err != nil {
		return err
	}

	maxT, factor := cfg.Autocorrelation.MaxTime, cfg.Autocorrelation.Factor
	var rows [][]float64
	var table [][]string
	var runErr error
	for _, beta := range cfg.Betas {
		if ctx.Err() != nil {
			break
		}
		c, err := metropolis.AutocorrelationFunction(e, beta, maxT, factor, observe)
		if err != nil {
			runErr = err
			break
		}
		for t, v := range c {
			rows = append(rows, []float64{beta, float64(t), float64(v)})
		}

		tau := "undefined"
		if v, err := metropolis.IntegratedTime(c, maxT); err == nil {
			tau = strconv.FormatFloat(float64(v), 'f', 3, 64)
		} else if !errors.Is(err, metropolis.ErrZeroVariance) {
			runErr = err
			break
		}
		table = append(table, []string{
			strconv.FormatFloat(beta, 'g', 6, 64),
			strconv.FormatFloat(float64(c[0]), 'e', 4, 64),
			tau,
		})

		series := make([]float64, len(c))
		for i, v := range c {
			series[i] = float64(v)
		}
		fmt.Println(viz.Plot(series, fmt.Sprintf("C(t) at beta=%g", beta)))
		fmt.Println()
	}

	if err := run.SaveSamples(storage.KindAutocorrelation, []string{"beta", "t", "c"}, rows); err != nil {
		return err
	}
	writeMetrics(run, reg)
	status := statusOf(ctx, runErr)
	stats := e.Stats()
	if err := run.Finish(status, map[string]float64{
		"acceptance_rate": stats.AcceptanceRate(),
		"steps":           float64(stats.Total()),
	}); err != nil {
		return err
	}

	fmt.Println(viz.KeyValue(
		[2]string{"run id", run.ID()},
		[2]string{"status", viz.Status(status)},
		[2]string{"acceptance", strconv.FormatFloat(stats.AcceptanceRate(), 'f', 4, 64)},
	))
	fmt.Println()
	fmt.Println(viz.Table([]string{"BETA", "C(0)", "TAU"}, table))
	return runErr
}
