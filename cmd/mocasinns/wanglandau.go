package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SpeckFleck/mocasinns/internal/analysis"
	"github.com/SpeckFleck/mocasinns/internal/config"
	"github.com/SpeckFleck/mocasinns/internal/histogram"
	"github.com/SpeckFleck/mocasinns/internal/metrics"
	"github.com/SpeckFleck/mocasinns/internal/models"
	"github.com/SpeckFleck/mocasinns/internal/rng"
	"github.com/SpeckFleck/mocasinns/internal/storage"
	"github.com/SpeckFleck/mocasinns/internal/viz"
	"github.com/SpeckFleck/mocasinns/internal/wanglandau"
)

const checkpointDB = "checkpoints"

func runWangLandau(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	run, err := st.Create(storage.KindWangLandau, cfg)
	if err != nil {
		return err
	}
	return executeWangLandau(cmd.Context(), run, cfg, false)
}

func resumeWangLandau(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	run, err := st.Open(args[0])
	if err != nil {
		return err
	}
	if run.Meta.Kind != storage.KindWangLandau {
		return fmt.Errorf("run %s is a %s run, only %s runs can be resumed", run.ID(), run.Meta.Kind, storage.KindWangLandau)
	}
	if run.Meta.Status == storage.StatusCompleted {
		return fmt.Errorf("run %s has already converged", run.ID())
	}
	cfg, err := st.LoadConfig(run.ID())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(cfg)
	return executeWangLandau(cmd.Context(), run, cfg, true)
}

func executeWangLandau(ctx context.Context, run *storage.Run, cfg *config.Config, resume bool) error {
	registry := models.NewRegistry()
	model, err := registry.GetModel(cfg.Model, cfg.ModelParams())
	if err != nil {
		return err
	}

	var binning histogram.Binning[int]
	if cfg.BinWidth > 0 {
		b, err := histogram.NewFixed(cfg.BinWidth, 0)
		if err != nil {
			return err
		}
		binning = b
	}

	ckpts, err := storage.OpenCheckpointLog(storage.DefaultCheckpointConfig(filepath.Join(dataDir, checkpointDB)))
	if err != nil {
		return err
	}
	defer ckpts.Close()

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	log := logrus.WithField("run", run.ID())
	total := cfg.WangLandau.Epochs()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var prog *tea.Program
	if liveView {
		prog = tea.NewProgram(viz.NewMonitor(cfg.Model, run.ID(), total, cancel), tea.WithContext(ctx))
	}

	var e *wanglandau.Engine[int]
	e, err = wanglandau.New[int](cfg.WangLandau, model, rng.NewPartitioned(rng.Key(cfg.Seed)).Stream(rng.StreamMain), binning,
		wanglandau.WithLogger(log),
		wanglandau.WithRecorder(rec),
		wanglandau.WithEpochHook(func() {
			if prog != nil {
				_, lnG := analysis.Series(e.DensityOfStates())
				prog.Send(viz.EpochMsg{
					Epoch:              e.Epoch(),
					Steps:              e.Steps(),
					ModificationFactor: e.ModificationFactor(),
					Flatness:           e.Flatness(),
					LnG:                lnG,
				})
			} else {
				fmt.Fprintf(os.Stderr, "%s %d/%d\n", viz.ProgressBar(float64(e.Epoch())/float64(total), 40), e.Epoch(), total)
			}
			if err := logEpoch(context.WithoutCancel(ctx), ckpts, run.ID(), e); err != nil {
				log.WithError(err).Warn("epoch checkpoint failed")
			}
		}),
	)
	if err != nil {
		return err
	}

	if resume {
		if err := restore(ctx, ckpts, run, e); err != nil {
			return err
		}
		log.WithField("epoch", e.Epoch()).Info("resumed")
	}

	start := time.Now()
	var runErr error
	if prog != nil {
		runErr = runLive(runCtx, run, e, prog)
	} else {
		fmt.Printf("running wang-landau on %s (%s)...\n", cfg.Model, run.ID())
		runErr = e.Run(ctx)
	}
	elapsed := time.Since(start)

	status := statusOf(ctx, runErr)
	if !e.Converged() && status == storage.StatusCompleted {
		status = storage.StatusCanceled
	}
	if err := e.SaveFile(run.Path(storage.CheckpointFile)); err != nil {
		return err
	}
	dos := e.DensityOfStates()
	if c, ok := model.(models.Counted); ok && dos.Len() > 0 {
		if dos, err = analysis.NormalizeTotal(dos, c.LnStateCount()); err != nil {
			return err
		}
	}
	if err := run.SaveDOS(dos); err != nil {
		return err
	}
	writeMetrics(run, reg)
	if err := run.Finish(status, map[string]float64{
		"epochs":              float64(e.Epoch()),
		"steps":               float64(e.Steps()),
		"modification_factor": e.ModificationFactor(),
		"flatness":            e.Flatness(),
		"elapsed_seconds":     elapsed.Seconds(),
	}); err != nil {
		return err
	}

	fmt.Println(viz.KeyValue(
		[2]string{"run id", run.ID()},
		[2]string{"status", viz.Status(status)},
		[2]string{"epochs", fmt.Sprintf("%d/%d", e.Epoch(), total)},
		[2]string{"steps", strconv.FormatInt(e.Steps(), 10)},
		[2]string{"elapsed", elapsed.Round(time.Millisecond).String()},
	))
	fmt.Println()
	fmt.Println(dosTable(dos))

	if status == storage.StatusCanceled {
		fmt.Printf("\nresume with: mocasinns resume %s\n", run.ID())
	}
	return runErr
}

// runLive runs the engine in the background while a dashboard follows it.
// Log output goes to the run directory so it does not tear the screen.
func runLive(ctx context.Context, run *storage.Run, e *wanglandau.Engine[int], prog *tea.Program) error {
	logFile, err := os.Create(run.Path(storage.LogFile))
	if err != nil {
		return err
	}
	defer logFile.Close()
	logrus.SetOutput(logFile)
	defer logrus.SetOutput(os.Stderr)

	done := make(chan error, 1)
	go func() {
		err := e.Run(ctx)
		done <- err
		prog.Send(viz.DoneMsg{Err: err})
	}()

	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logrus.WithError(err).Warn("dashboard stopped")
	}
	return <-done
}

// logEpoch stores the engine state in the checkpoint log and drops old
// epochs.
func logEpoch(ctx context.Context, log *storage.CheckpointLog, runID string, e *wanglandau.Engine[int]) error {
	var buf bytes.Buffer
	if err := e.Save(&buf); err != nil {
		return err
	}
	if err := log.Put(ctx, runID, e.Epoch(), buf.Bytes()); err != nil {
		return err
	}
	_, err := log.Prune(ctx, runID, keepCheckpoints)
	return err
}

// restore loads the final checkpoint of an interrupted run, falling back to
// the latest epoch checkpoint when the run did not shut down cleanly.
func restore(ctx context.Context, ckpts *storage.CheckpointLog, run *storage.Run, e *wanglandau.Engine[int]) error {
	err := e.LoadFile(run.Path(storage.CheckpointFile))
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	cp, err := ckpts.Latest(ctx, run.ID())
	if err != nil {
		return err
	}
	return e.Load(bytes.NewReader(cp.Data))
}

func dosTable(dos *histogram.Histogram[int, float64]) string {
	rows := make([][]string, 0, dos.Len())
	for energy, lnG := range dos.All() {
		rows = append(rows, []string{
			strconv.Itoa(energy),
			strconv.FormatFloat(lnG, 'f', 6, 64),
			strconv.FormatFloat(math.Exp(lnG), 'g', 8, 64),
		})
	}
	return viz.Table([]string{"E", "ln g(E)", "g(E)"}, rows)
}
