// Package kvdb wraps the embedded key-value stores used to persist
// dictionary snapshots. Both backends iterate keys in byte order, which
// callers rely on to restore ordered data.
package kvdb

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	BOLT = iota
	BADGER
)

type Store interface {
	Open() error                                       // open or create the store at Path
	Path() string                                      // file (bolt) or directory (badger) of the store
	Reset() error                                      // drop every key
	BatchSet(keys, values [][]byte) error              // write all pairs in one batch
	Iterate(fn func(k, v []byte) error) (int64, error) // visit pairs in key order, returns count
	Close() error                                      // flush and release the file lock
}

// BackendFromName maps a config name to a backend constant.
func BackendFromName(name string) (int, error) {
	switch name {
	case "bolt":
		return BOLT, nil
	case "badger":
		return BADGER, nil
	default:
		return 0, fmt.Errorf("unknown dictionary backend %q", name)
	}
}

// Open creates the parent directory of path if needed and opens a store of
// the given backend there.
func Open(backend int, path string) (Store, error) {
	parent := filepath.Dir(path)
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		slog.Debug("creating store parent directory", "path", parent)
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	var db Store
	switch backend {
	case BADGER:
		db = new(Badger).WithDataPath(path)
	default:
		db = new(Bolt).WithDataPath(path)
	}
	if err := db.Open(); err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	return db, nil
}
