package wanglandau

import (
	"encoding"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SpeckFleck/mocasinns/internal/histogram"
)

// CheckpointVersion is the version of the checkpoint document written by
// Save.
const CheckpointVersion = 1

type checkpoint struct {
	Version            int                `yaml:"version"`
	Parameters         Parameters         `yaml:"parameters"`
	ModificationFactor float64            `yaml:"modification_factor"`
	Epoch              int                `yaml:"epoch"`
	Steps              int64              `yaml:"steps"`
	State              string             `yaml:"state"`
	Energy             string             `yaml:"energy"`
	RNG                string             `yaml:"rng,omitempty"`
	Configuration      string             `yaml:"configuration,omitempty"`
	DensityOfStates    []histogram.Record `yaml:"density_of_states"`
	Visits             []histogram.Record `yaml:"visits"`
}

// Save writes the resumable state of the engine as a YAML document. The
// random source and the configuration are included when they implement
// encoding.BinaryMarshaler.
func (e *Engine[E]) Save(w io.Writer) error {
	ec := histogram.NumberCodec[E]()
	fc := histogram.NumberCodec[float64]()
	ic := histogram.NumberCodec[int64]()

	doc := checkpoint{
		Version:            CheckpointVersion,
		Parameters:         e.params,
		ModificationFactor: e.modFactor,
		Epoch:              e.epoch,
		Steps:              e.steps,
		State:              e.state.String(),
		Energy:             ec.Format(e.energy),
		DensityOfStates:    e.dos.Records(ec, fc),
		Visits:             e.visits.Records(ec, ic),
	}

	var err error
	if doc.RNG, err = marshalState(e.rng); err != nil {
		return fmt.Errorf("save random source: %w", err)
	}
	if doc.Configuration, err = marshalState(e.config); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}

	enc := yaml.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return enc.Close()
}

// Load restores a document written by Save. The engine keeps its binning,
// configuration and random source; their content is replaced. On error the
// engine is left unchanged, unless restoring the configuration or random
// source itself fails halfway.
func (e *Engine[E]) Load(r io.Reader) error {
	var doc checkpoint
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpoint, err)
	}
	if doc.Version != CheckpointVersion {
		return fmt.Errorf("%w: checkpoint v%d", histogram.ErrUnsupportedVersion, doc.Version)
	}
	if err := doc.Parameters.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpoint, err)
	}
	state, err := ParseState(doc.State)
	if err != nil {
		return err
	}

	ec := histogram.NumberCodec[E]()
	energy, err := ec.Parse(doc.Energy)
	if err != nil {
		return fmt.Errorf("%w: energy %q", ErrCheckpoint, doc.Energy)
	}
	dos := histogram.New[E, float64](e.dos.Binning())
	if err := dos.LoadRecords(doc.DensityOfStates, ec, histogram.NumberCodec[float64]()); err != nil {
		return fmt.Errorf("%w: density of states: %w", ErrCheckpoint, err)
	}
	visits := histogram.New[E, int64](e.visits.Binning())
	if err := visits.LoadRecords(doc.Visits, ec, histogram.NumberCodec[int64]()); err != nil {
		return fmt.Errorf("%w: visits: %w", ErrCheckpoint, err)
	}

	rngState, err := decodeState(doc.RNG, e.rng)
	if err != nil {
		return fmt.Errorf("%w: random source: %w", ErrCheckpoint, err)
	}
	configState, err := decodeState(doc.Configuration, e.config)
	if err != nil {
		return fmt.Errorf("%w: configuration: %w", ErrCheckpoint, err)
	}
	if configState != nil {
		if err := e.config.(encoding.BinaryUnmarshaler).UnmarshalBinary(configState); err != nil {
			return fmt.Errorf("%w: configuration: %w", ErrCheckpoint, err)
		}
	}
	if rngState != nil {
		if err := e.rng.(encoding.BinaryUnmarshaler).UnmarshalBinary(rngState); err != nil {
			return fmt.Errorf("%w: random source: %w", ErrCheckpoint, err)
		}
	}

	e.params = doc.Parameters
	e.modFactor = doc.ModificationFactor
	e.epoch = doc.Epoch
	e.steps = doc.Steps
	e.state = state
	e.energy = energy
	e.dos = dos
	e.visits = visits
	e.flatness = 0
	e.recorder.SetModificationFactor(e.modFactor)

	e.log.WithField("epoch", e.epoch).WithField("steps", e.steps).Info("checkpoint restored")
	return nil
}

// SaveFile writes a checkpoint to path.
func (e *Engine[E]) SaveFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close checkpoint: %w", cerr)
		}
	}()
	return e.Save(f)
}

// LoadFile restores a checkpoint from path.
func (e *Engine[E]) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()
	return e.Load(f)
}

func marshalState(v any) (string, error) {
	m, ok := v.(encoding.BinaryMarshaler)
	if !ok {
		return "", nil
	}
	data, err := m.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// decodeState returns the raw state for target, or nil if the document has
// none. A present state that target cannot restore is an error.
func decodeState(encoded string, target any) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	if _, ok := target.(encoding.BinaryUnmarshaler); !ok {
		return nil, fmt.Errorf("%T cannot restore saved state", target)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	return data, nil
}
