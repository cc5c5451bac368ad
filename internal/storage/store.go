package storage

import (
	"cmp"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/SpeckFleck/mocasinns/internal/config"
	"github.com/SpeckFleck/mocasinns/internal/histogram"
)

// Files inside a run directory.
const (
	MetadataFile   = "metadata.json"
	ConfigFile     = "config.yaml"
	DOSFile        = "dos.csv"
	CheckpointFile = "checkpoint.yaml"
	MetricsFile    = "metrics.prom"
	LogFile        = "run.log"
)

// Run kinds.
const (
	KindWangLandau      = "wang-landau"
	KindMetropolis      = "metropolis"
	KindAutocorrelation = "autocorr"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
	StatusFailed    = "failed"
)

var ErrNoSamples = errors.New("storage: sample file has no header")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) BaseDir() string { return s.baseDir }

type RunMetadata struct {
	ID        string             `json:"id"`
	Kind      string             `json:"kind"`
	Model     string             `json:"model"`
	Lattice   []int              `json:"lattice,omitempty"`
	Seed      uint64             `json:"seed"`
	Timestamp time.Time          `json:"timestamp"`
	Updated   time.Time          `json:"updated"`
	Status    string             `json:"status"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Run is an open run directory.
type Run struct {
	Meta RunMetadata
	dir  string
}

// Create allocates a new run directory and records cfg alongside its
// metadata.
func (s *Store) Create(kind string, cfg *config.Config) (*Run, error) {
	now := time.Now().UTC()
	runID := fmt.Sprintf("%s_%s_%s", kind, now.Format("20060102T150405"), uuid.NewString()[:8])
	dir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if err := config.Save(filepath.Join(dir, ConfigFile), cfg); err != nil {
		return nil, err
	}

	r := &Run{
		Meta: RunMetadata{
			ID:        runID,
			Kind:      kind,
			Model:     cfg.Model,
			Lattice:   append([]int(nil), cfg.Lattice...),
			Seed:      cfg.Seed,
			Timestamp: now,
			Updated:   now,
			Status:    StatusRunning,
			Metrics:   map[string]float64{},
		},
		dir: dir,
	}
	return r, r.writeMetadata()
}

// Open reopens an existing run, e.g. to resume it.
func (s *Store) Open(runID string) (*Run, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	return &Run{Meta: *meta, dir: filepath.Join(s.baseDir, runID)}, nil
}

func (r *Run) ID() string  { return r.Meta.ID }
func (r *Run) Dir() string { return r.dir }

// Path returns the path of a file inside the run directory.
func (r *Run) Path(name string) string { return filepath.Join(r.dir, name) }

// Finish records the final status and metrics.
func (r *Run) Finish(status string, metrics map[string]float64) error {
	r.Meta.Status = status
	r.Meta.Updated = time.Now().UTC()
	if r.Meta.Metrics == nil {
		r.Meta.Metrics = map[string]float64{}
	}
	for k, v := range metrics {
		r.Meta.Metrics[k] = v
	}
	return r.writeMetadata()
}

func (r *Run) writeMetadata() error {
	f, err := os.Create(r.Path(MetadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Meta)
}

// SaveDOS writes a logarithmic density of states in the histogram CSV format.
func (r *Run) SaveDOS(dos *histogram.Histogram[int, float64]) error {
	return dos.SaveFile(r.Path(DOSFile), histogram.NumberCodec[int](), histogram.NumberCodec[float64]())
}

// SaveSamples writes one CSV row per measurement under name.csv.
func (r *Run) SaveSamples(name string, header []string, rows [][]float64) error {
	f, err := os.Create(r.Path(name + ".csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every run, oldest first. Directories without
// readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, MetadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, ConfigFile))
}

// LoadDOS reads a stored density of states. Bins are kept as written.
func (s *Store) LoadDOS(runID string) (*histogram.Histogram[int, float64], error) {
	h := histogram.NewIdentity[int, float64]()
	err := h.LoadFile(filepath.Join(s.baseDir, runID, DOSFile), histogram.NumberCodec[int](), histogram.NumberCodec[float64]())
	if err != nil {
		return nil, err
	}
	return h, nil
}

// LoadSamples reads name.csv written by SaveSamples.
func (s *Store) LoadSamples(runID, name string) ([]string, [][]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, name+".csv"))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, ErrNoSamples
	}

	rows := make([][]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s.csv row %d: %w", name, i+1, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return records[0], rows, nil
}
