// Package persist stores a serialized configuration tree in a single file.
package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"github.com/mesh-intelligence/cfgtree/pkg/codec"
	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// CompressedSuffix marks files stored zstd-compressed.
const CompressedSuffix = ".zst"

// File persists a store through a codec. Saving an unchanged tree does not
// touch the disk.
type File struct {
	path   string
	codec  *codec.Codec
	logger *slog.Logger

	mu     sync.Mutex
	digest [32]byte
	known  bool
	writes int
}

// NewFile creates a sink for path. A path ending in ".zst" is compressed.
func NewFile(path string, c *codec.Codec, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{
		path:   path,
		codec:  c,
		logger: logger.With("component", "persist", "path", path),
	}
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// Writes returns how many times Save wrote the file.
func (f *File) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *File) compressed() bool { return strings.HasSuffix(f.path, CompressedSuffix) }

// Load applies the file to the store. A missing file leaves the store at
// its defaults.
func (f *File) Load(s *tree.Store) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.logger.Debug("no settings file, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", f.path, err)
	}
	if f.compressed() {
		if data, err = decompress(data); err != nil {
			return fmt.Errorf("decompressing %s: %w", f.path, err)
		}
	}
	if err := f.codec.Deserialize(s, data); err != nil {
		return fmt.Errorf("loading %s: %w", f.path, err)
	}
	f.digest, f.known = blake3.Sum256(data), true
	return nil
}

// Save serializes the store and writes it atomically unless the content is
// unchanged since the last Load or Save.
func (f *File) Save(s *tree.Store) error {
	data, err := f.codec.Serialize(s)
	if err != nil {
		return fmt.Errorf("serializing: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	sum := blake3.Sum256(data)
	if f.known && sum == f.digest {
		f.logger.Debug("settings unchanged, skipping write")
		return nil
	}
	out := data
	if f.compressed() {
		if out, err = compress(data); err != nil {
			return fmt.Errorf("compressing: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := writeAtomic(f.path, out); err != nil {
		return err
	}
	f.digest, f.known = sum, true
	f.writes++
	f.logger.Info("saved settings", "bytes", len(out))
	return nil
}

// Close implements the sink interface. Files hold no resources.
func (f *File) Close() error { return nil }

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	out := enc.EncodeAll(data, nil)
	return out, enc.Close()
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

// writeAtomic writes data using the temp-file, fsync, rename pattern.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
