package storage

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/SpeckFleck/mocasinns/internal/analysis"
	"github.com/SpeckFleck/mocasinns/internal/config"
)

type DOSPoint struct {
	Energy float64 `json:"energy"`
	LnG    float64 `json:"ln_g"`
}

type ExportData struct {
	Run            RunMetadata                 `json:"run"`
	Config         *config.Config              `json:"config,omitempty"`
	DOS            []DOSPoint                  `json:"density_of_states,omitempty"`
	Thermodynamics []analysis.Thermodynamics   `json:"thermodynamics,omitempty"`
	Samples        map[string]analysis.Summary `json:"samples,omitempty"`
}

// Export collects everything stored for a run. When a density of states is
// present the canonical averages are evaluated at every beta.
func (s *Store) Export(runID string, betas []float64) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	data := &ExportData{Run: *meta}

	if cfg, err := s.LoadConfig(runID); err == nil {
		data.Config = cfg
	}

	dos, err := s.LoadDOS(runID)
	switch {
	case err == nil:
		xs, ys := analysis.Series(dos)
		for i := range xs {
			data.DOS = append(data.DOS, DOSPoint{Energy: xs[i], LnG: ys[i]})
		}
		if len(betas) > 0 {
			if data.Thermodynamics, err = analysis.CanonicalRange(dos, betas); err != nil {
				return nil, err
			}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	header, rows, err := s.LoadSamples(runID, KindMetropolis)
	switch {
	case err == nil:
		data.Samples = make(map[string]analysis.Summary, len(header))
		for j, column := range header {
			values := make([]float64, 0, len(rows))
			for _, row := range rows {
				if j < len(row) {
					values = append(values, row[j])
				}
			}
			if sum, err := analysis.Summarize(values); err == nil {
				data.Samples[column] = sum
			}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	return data, nil
}

func ExportJSON(path string, data *ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}

func WriteJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
