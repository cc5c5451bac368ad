package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/SpeckFleck/mocasinns/internal/metropolis"
	"github.com/SpeckFleck/mocasinns/internal/models"
	"github.com/SpeckFleck/mocasinns/internal/wanglandau"
)

const (
	DefaultModel      = "ising"
	DefaultCoupling   = 1
	DefaultDegeneracy = 3
	DefaultBeta       = 0.44
	DefaultMaxTime    = 50
	DefaultTimeFactor = 5
	DefaultObservable = "energy"
	DefaultLogLevel   = "info"
)

// DefaultLattice is a 16x16 square lattice.
var DefaultLattice = []int{16, 16}

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Model      string `yaml:"model" json:"model"`
	Lattice    []int  `yaml:"lattice,flow" json:"lattice"`
	Coupling   int    `yaml:"coupling" json:"coupling"`
	Degeneracy int    `yaml:"degeneracy" json:"degeneracy"`
	Seed       uint64 `yaml:"seed" json:"seed"`
	// BinWidth groups energies for the Wang-Landau histograms. Zero keeps
	// every energy in its own bin.
	BinWidth        int                   `yaml:"bin_width" json:"bin_width"`
	Observable      string                `yaml:"observable" json:"observable"`
	Betas           []float64             `yaml:"betas,flow" json:"betas"`
	Replicas        int                   `yaml:"replicas" json:"replicas"`
	Autocorrelation AutocorrelationConfig `yaml:"autocorrelation" json:"autocorrelation"`
	Metropolis      metropolis.Parameters `yaml:"metropolis" json:"metropolis"`
	WangLandau      wanglandau.Parameters `yaml:"wang_landau" json:"wang_landau"`
	LogLevel        string                `yaml:"log_level" json:"log_level"`
}

type AutocorrelationConfig struct {
	MaxTime int `yaml:"max_time" json:"max_time"`
	Factor  int `yaml:"factor" json:"factor"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      DefaultModel,
		Lattice:    append([]int(nil), DefaultLattice...),
		Coupling:   DefaultCoupling,
		Degeneracy: DefaultDegeneracy,
		Observable: DefaultObservable,
		Betas:      []float64{DefaultBeta},
		Replicas:   1,
		Autocorrelation: AutocorrelationConfig{
			MaxTime: DefaultMaxTime,
			Factor:  DefaultTimeFactor,
		},
		Metropolis: metropolis.DefaultParameters(),
		WangLandau: wanglandau.DefaultParameters(),
		LogLevel:   DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto unmarshals the file at path over cfg, so keys absent from the
// file keep their current values.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Lattice = append([]int(nil), c.Lattice...)
	cp.Betas = append([]float64(nil), c.Betas...)
	return &cp
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalid)
	}
	if c.BinWidth < 0 {
		return fmt.Errorf("%w: bin_width must be >= 0, got %d", ErrInvalid, c.BinWidth)
	}
	if c.Replicas < 1 {
		return fmt.Errorf("%w: replicas must be >= 1, got %d", ErrInvalid, c.Replicas)
	}
	if len(c.Betas) == 0 {
		return fmt.Errorf("%w: at least one beta required", ErrInvalid)
	}
	if c.Autocorrelation.MaxTime < 1 || c.Autocorrelation.Factor < 1 {
		return fmt.Errorf("%w: autocorrelation max_time and factor must be >= 1", ErrInvalid)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Metropolis.Validate(); err != nil {
		return fmt.Errorf("metropolis: %w", err)
	}
	if err := c.WangLandau.Validate(); err != nil {
		return fmt.Errorf("wang_landau: %w", err)
	}
	return nil
}

// ModelParams returns the construction parameters for the model registry.
func (c *Config) ModelParams() models.Params {
	return models.Params{
		Sizes:      append([]int(nil), c.Lattice...),
		Coupling:   c.Coupling,
		Degeneracy: c.Degeneracy,
	}
}

// Level returns the configured log level, defaulting to Info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
