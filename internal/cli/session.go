package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cfgtree/internal/demo"
	"github.com/mesh-intelligence/cfgtree/pkg/codec"
	"github.com/mesh-intelligence/cfgtree/pkg/config"
	"github.com/mesh-intelligence/cfgtree/pkg/editor"
	"github.com/mesh-intelligence/cfgtree/pkg/persist"
)

// session is the demo schema wired to a codec, an editor and a sink.
type session struct {
	schema *demo.Schema
	codec  *codec.Codec
	editor *editor.Editor
	sink   persist.Sink
	logger *slog.Logger
}

func newCodec(format string, opts ...codec.Option) (*codec.Codec, error) {
	switch format {
	case "json":
		return codec.JSON(opts...), nil
	case "pretty":
		return codec.Pretty(opts...), nil
	case "yaml":
		return codec.YAML(opts...), nil
	case "toml":
		return codec.TOML(opts...), nil
	}
	return nil, userError("unknown format %q (valid: json, pretty, yaml, toml)", format)
}

// openSession builds the schema and opens the sink. When load is set the
// stored values are applied before returning. The caller must Close it.
func openSession(cmd *cobra.Command, load bool, opts ...codec.Option) (*session, error) {
	logger := newLogger(cmd)
	c, err := newCodec(cfg.GetString(cfgKeyFormat), append(opts, codec.WithLogger(logger))...)
	if err != nil {
		return nil, err
	}
	sinkName := cfg.GetString(cfgKeySink)
	if sinkName != persist.SinkFile && sinkName != persist.SinkSQLite {
		return nil, userError("unknown sink %q (valid: file, sqlite)", sinkName)
	}
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	ed := editor.New(editor.WithLogger(logger))
	s := &session{
		schema: demo.NewApp(config.Chain{c, ed}, config.WithLogger(logger)),
		codec:  c,
		editor: ed,
		logger: logger,
	}
	if s.sink, err = persist.Open(dataDir, sinkName, c, cfg.GetBool(cfgKeyCompress), logger); err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}
	if load {
		if err := s.sink.Load(s.schema.App.Store()); err != nil {
			s.sink.Close()
			return nil, fmt.Errorf("load settings: %w", err)
		}
	}
	return s, nil
}

func (s *session) save() error {
	if err := s.sink.Save(s.schema.App.Store()); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *session) Close() error { return s.sink.Close() }

// lookup returns the serialized entry named key.
func (s *session) lookup(key string) (codec.Entry, error) {
	entries, err := s.codec.Entries(s.schema.App.Store())
	if err != nil {
		return codec.Entry{}, err
	}
	for _, e := range entries {
		if e.Key == key {
			return e, nil
		}
	}
	return codec.Entry{}, userError("unknown key %q", key)
}
