// Package badgertool implements an IO-Tool backed by an embedded BadgerDB.
//
// Topology content is stored snappy-compressed under the key
// "topology/<id>".
package badgertool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-topology/pkg/iotool"
	"github.com/dd0wney/cluso-topology/pkg/logging"
)

const keyPrefix = "topology/"

// Config holds configuration for the BadgerDB instance.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory disables disk persistence. Useful for testing.
	InMemory bool

	SyncWrites bool

	// Logger receives BadgerDB's internal log output. Nil disables it.
	Logger logging.Logger

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration

	GCDiscardRatio float64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts logging.Logger to badger.Logger.
type badgerLogger struct {
	logger logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Tool stores topologies in BadgerDB.
type Tool struct {
	db     *badger.DB
	logger logging.Logger
	stopGC chan struct{}
	doneGC chan struct{}
}

var _ iotool.Tool = (*Tool)(nil)

// Open opens the database and starts value log GC when configured.
func Open(cfg Config) (*Tool, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.With(logging.Component("badger"))})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	t := &Tool{db: db, logger: logging.OrDefault(cfg.Logger)}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		t.stopGC = make(chan struct{})
		t.doneGC = make(chan struct{})
		go t.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return t, nil
}

func (t *Tool) runGC(interval time.Duration, ratio float64) {
	defer close(t.doneGC)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means there was nothing to collect.
			if err := t.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				t.logger.Warn("badger value log GC failed", logging.Error(err))
			}
		}
	}
}

// Close stops GC and closes the database.
func (t *Tool) Close() error {
	if t.stopGC != nil {
		close(t.stopGC)
		<-t.doneGC
		t.stopGC = nil
	}
	return t.db.Close()
}

func key(id string) []byte {
	return []byte(keyPrefix + id)
}

func (t *Tool) Request(_ context.Context, id string) (iotool.Response, error) {
	var content []byte
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := snappy.Decode(nil, val)
			if err != nil {
				return fmt.Errorf("decompress topology %s: %w", id, err)
			}
			content = decoded
			return nil
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return iotool.Response{Code: iotool.CodeNotFound, Message: "topology " + id + " not found"}, nil
	case err != nil:
		return iotool.Response{Code: iotool.CodeInternal, Message: err.Error()}, nil
	}
	return iotool.Response{
		Code:    iotool.CodeOK,
		Message: "OK",
		Data:    map[string]string{id: string(content)},
	}, nil
}

func (t *Tool) Store(_ context.Context, id string, content []byte) (iotool.Response, error) {
	if id == "" {
		return iotool.Response{Code: iotool.CodeInvalid, Message: "topology id is required"}, nil
	}
	err := t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(id), snappy.Encode(nil, content))
	})
	if err != nil {
		return iotool.Response{Code: iotool.CodeInternal, Message: err.Error()}, nil
	}
	return iotool.Response{Code: iotool.CodeOK, Message: "OK"}, nil
}

func (t *Tool) Drop(_ context.Context, id string) (iotool.Response, error) {
	err := t.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(id)); err != nil {
			return err
		}
		return txn.Delete(key(id))
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return iotool.Response{Code: iotool.CodeNotFound, Message: "topology " + id + " not found"}, nil
	case err != nil:
		return iotool.Response{Code: iotool.CodeInternal, Message: err.Error()}, nil
	}
	return iotool.Response{Code: iotool.CodeOK, Message: "OK"}, nil
}

// IDs lists the stored topology ids.
func (t *Tool) IDs() ([]string, error) {
	var ids []string
	err := t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	return ids, err
}
