package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SpeckFleck/mocasinns/internal/analysis"
	"github.com/SpeckFleck/mocasinns/internal/config"
	"github.com/SpeckFleck/mocasinns/internal/storage"
	"github.com/SpeckFleck/mocasinns/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		lattice := make([]string, len(run.Lattice))
		for i, l := range run.Lattice {
			lattice[i] = fmt.Sprint(l)
		}
		rows = append(rows, []string{
			run.ID,
			run.Kind,
			run.Model,
			strings.Join(lattice, "x"),
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			viz.Status(run.Status),
		})
	}
	fmt.Println(viz.Table([]string{"ID", "KIND", "MODEL", "LATTICE", "TIME", "STATUS"}, rows))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	fmt.Println(viz.KeyValue(
		[2]string{"run", meta.ID},
		[2]string{"kind", meta.Kind},
		[2]string{"model", meta.Model},
		[2]string{"status", viz.Status(meta.Status)},
	))
	fmt.Println()

	switch meta.Kind {
	case storage.KindWangLandau:
		dos, err := st.LoadDOS(runID)
		if err != nil {
			return err
		}
		xs, ys := analysis.Series(dos)
		fmt.Println(viz.PlotSeries(xs, ys, "ln g(E)"))
		if err := writeSVG(xs, ys, "ln g(E) "+meta.ID); err != nil {
			return err
		}

		cfg, err := st.LoadConfig(runID)
		if err != nil || dos.Len() == 0 {
			return nil
		}
		thermo, err := analysis.CanonicalRange(dos, cfg.Betas)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(thermo))
		for _, t := range thermo {
			rows = append(rows, []string{
				fmt.Sprintf("%g", t.Beta),
				fmt.Sprintf("%.6f", t.InternalEnergy),
				fmt.Sprintf("%.6f", t.SpecificHeat),
				fmt.Sprintf("%.6f", t.FreeEnergy),
				fmt.Sprintf("%.6f", t.Entropy),
			})
		}
		fmt.Println()
		fmt.Println(viz.Table([]string{"BETA", "U", "C", "F", "S"}, rows))

	case storage.KindMetropolis, storage.KindAutocorrelation:
		header, rows, err := st.LoadSamples(runID, meta.Kind)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("no data to plot")
		}
		col := len(header) - 1
		temps := distinct(rows, 0)
		for _, beta := range temps {
			var series []float64
			for _, row := range rows {
				if row[0] == beta {
					series = append(series, row[col])
				}
			}
			fmt.Println(viz.Plot(series, fmt.Sprintf("%s at beta=%g", header[col], beta)))
			fmt.Println(viz.SparklineChart(series, 80))
			fmt.Println()

			if beta == temps[0] {
				xs := make([]float64, len(series))
				for i := range xs {
					xs[i] = float64(i)
				}
				if err := writeSVG(xs, series, fmt.Sprintf("%s at beta=%g", header[col], beta)); err != nil {
					return err
				}
			}
		}

	default:
		return fmt.Errorf("nothing to plot for run kind %q", meta.Kind)
	}
	return nil
}

// writeSVG writes the series to --svg when it is set.
func writeSVG(xs, ys []float64, label string) error {
	if svgFile == "" {
		return nil
	}
	svg := viz.SeriesToSVG(xs, ys, 800, 400, "#00ff88", label)
	if svg == "" {
		return fmt.Errorf("not enough points for %s", svgFile)
	}
	if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("saved %s\n", svgFile)
	return nil
}

// distinct returns the distinct values of column col in order of first
// appearance.
func distinct(rows [][]float64, col int) []float64 {
	var out []float64
	seen := make(map[float64]bool)
	for _, row := range rows {
		if v := row[col]; !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func listPresets(cmd *cobra.Command, args []string) error {
	presets := config.ListPresets(args[0])
	if len(presets) == 0 {
		fmt.Printf("no presets for model: %s\n", args[0])
		return nil
	}
	fmt.Println(viz.Title.Render("presets for " + args[0] + ":"))
	for _, p := range presets {
		cfg := config.GetPreset(args[0], p)
		fmt.Printf("  %-10s %s\n", p, viz.Subtle.Render(fmt.Sprintf("lattice=%v betas=%v final=%g", cfg.Lattice, cfg.Betas, cfg.WangLandau.ModificationFactorFinal)))
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	temps := betas
	if !cmd.Flags().Changed("beta") {
		cfg, err := st.LoadConfig(runID)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if cfg != nil {
			temps = cfg.Betas
		}
	}

	data, err := st.Export(runID, temps)
	if err != nil {
		return err
	}
	if outFile == "" {
		return storage.WriteJSON(os.Stdout, data)
	}
	if err := storage.ExportJSON(outFile, data); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", runID, outFile)
	return nil
}
