// Package persist provides the public factories for settings storage while
// keeping sink implementations internal.
//
// A sink reads and writes through a codec, which must be the one installed
// as the app's manager (alone or inside a config.Chain): a codec only sees
// scalar types whose nodes it attached to.
//
// Example:
//
//	c := codec.YAML()
//	app := config.NewApp()
//	app.Init("ui", settings, c)
//	sink, err := persist.Open(dataDir, persist.SinkFile, c, false, logger)
//	if err != nil {
//	    return err
//	}
//	defer sink.Close()
//	if err := sink.Load(app.Store()); err != nil {
//	    return err
//	}
package persist

import (
	"log/slog"

	ifile "github.com/mesh-intelligence/cfgtree/internal/persist"
	"github.com/mesh-intelligence/cfgtree/internal/paths"
	"github.com/mesh-intelligence/cfgtree/internal/sqlite"
	"github.com/mesh-intelligence/cfgtree/pkg/codec"
	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// Sink names.
const (
	SinkFile   = paths.SinkFile
	SinkSQLite = paths.SinkSQLite
)

// Sink loads and saves the serialized form of a store.
type Sink interface {
	// Load applies stored values to the store. Missing storage is not an
	// error.
	Load(s *tree.Store) error
	// Save writes the store's current values.
	Save(s *tree.Store) error
	Close() error
}

// NewFile returns a sink writing the codec's format to path. A path ending
// in ".zst" is stored zstd-compressed.
func NewFile(path string, c *codec.Codec, logger *slog.Logger) Sink {
	return ifile.NewFile(path, c, logger)
}

// OpenSQLite opens a SQLite-backed sink at path.
func OpenSQLite(path string, c *codec.Codec, logger *slog.Logger) (Sink, error) {
	return sqlite.Open(path, c, logger)
}

// Open picks the sink and its file under dataDir.
func Open(dataDir, sink string, c *codec.Codec, compress bool, logger *slog.Logger) (Sink, error) {
	path, err := paths.StoreFile(dataDir, sink, c.Format().Name(), compress)
	if err != nil {
		return nil, err
	}
	if sink == SinkSQLite {
		return OpenSQLite(path, c, logger)
	}
	return NewFile(path, c, logger), nil
}
