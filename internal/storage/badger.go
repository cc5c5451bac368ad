package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

var ErrNoCheckpoint = errors.New("storage: no checkpoint for run")

// CheckpointConfig configures a CheckpointLog.
type CheckpointConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the log in RAM, for tests.
	InMemory bool

	SyncWrites bool

	// Logger receives badger's internal messages. Nil silences them.
	Logger *logrus.Entry
}

func DefaultCheckpointConfig(path string) CheckpointConfig {
	return CheckpointConfig{Path: path, SyncWrites: true}
}

func InMemoryCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{InMemory: true}
}

// CheckpointLog keeps every Wang-Landau epoch checkpoint of every run in an
// embedded key-value store, keyed by run and epoch.
type CheckpointLog struct {
	db *badger.DB
}

type Checkpoint struct {
	RunID string
	Epoch int
	Data  []byte
}

func OpenCheckpointLog(cfg CheckpointConfig) (*CheckpointLog, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("storage: path is required for a persistent checkpoint log")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create checkpoint log directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(cfg.Logger)
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint log: %w", err)
	}
	return &CheckpointLog{db: db}, nil
}

func (l *CheckpointLog) Close() error {
	return l.db.Close()
}

// runPrefix is "ckpt/<run>/". Epochs follow as 8 big-endian bytes so that
// byte order equals epoch order.
func runPrefix(runID string) []byte {
	return []byte("ckpt/" + runID + "/")
}

func checkpointKey(runID string, epoch int) []byte {
	return binary.BigEndian.AppendUint64(runPrefix(runID), uint64(epoch))
}

func (l *CheckpointLog) Put(ctx context.Context, runID string, epoch int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if epoch < 0 {
		return fmt.Errorf("storage: negative epoch %d", epoch)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(checkpointKey(runID, epoch), data)
	})
}

// Latest returns the checkpoint with the highest epoch.
func (l *CheckpointLog) Latest(ctx context.Context, runID string) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}
	prefix := runPrefix(runID)
	cp := Checkpoint{RunID: runID}

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(checkpointKey(runID, -1))
		if !it.ValidForPrefix(prefix) {
			return fmt.Errorf("%w %q", ErrNoCheckpoint, runID)
		}
		item := it.Item()
		cp.Epoch = int(binary.BigEndian.Uint64(item.Key()[len(prefix):]))
		var err error
		cp.Data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return Checkpoint{}, err
	}
	return cp, nil
}

func (l *CheckpointLog) Get(ctx context.Context, runID string, epoch int) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}
	cp := Checkpoint{RunID: runID, Epoch: epoch}
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(runID, epoch))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w %q epoch %d", ErrNoCheckpoint, runID, epoch)
		}
		if err != nil {
			return err
		}
		cp.Data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return Checkpoint{}, err
	}
	return cp, nil
}

// Epochs lists the stored epochs of a run in ascending order.
func (l *CheckpointLog) Epochs(ctx context.Context, runID string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := runPrefix(runID)
	var epochs []int
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			epochs = append(epochs, int(binary.BigEndian.Uint64(it.Item().Key()[len(prefix):])))
		}
		return nil
	})
	return epochs, err
}

// Prune keeps the newest keep checkpoints of a run and deletes the rest.
func (l *CheckpointLog) Prune(ctx context.Context, runID string, keep int) (int, error) {
	epochs, err := l.Epochs(ctx, runID)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(epochs) <= keep {
		return 0, nil
	}
	stale := epochs[:len(epochs)-keep]
	err = l.db.Update(func(txn *badger.Txn) error {
		for _, e := range stale {
			if err := txn.Delete(checkpointKey(runID, e)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}
