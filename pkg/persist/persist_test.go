package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cfgtree/internal/demo"
	"github.com/mesh-intelligence/cfgtree/pkg/codec"
	"github.com/mesh-intelligence/cfgtree/pkg/config"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		sink     string
		format   func(...codec.Option) *codec.Codec
		compress bool
		file     string
	}{
		{SinkFile, codec.JSON, false, "settings.json"},
		{SinkFile, codec.YAML, true, "settings.yaml.zst"},
		{SinkSQLite, codec.Pretty, false, "settings.db"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			dir := t.TempDir()
			c := tt.format()
			s := demo.NewApp(c)

			sink, err := Open(dir, tt.sink, c, tt.compress, nil)
			require.NoError(t, err)
			defer sink.Close()

			q := s.App.Store().Query(config.ValueAccess[bool]())
			h, ok := q.Lookup([]string{demo.WindowKey, "fullscreen"})
			require.True(t, ok)
			config.SetValue(q, h, true)
			q.Release()

			require.NoError(t, sink.Save(s.App.Store()))
			assert.FileExists(t, filepath.Join(dir, tt.file))

			s2 := demo.NewApp(c)
			require.NoError(t, sink.Load(s2.App.Store()))
			w, err := s2.ReadWindow()
			require.NoError(t, err)
			assert.True(t, w.Fullscreen)
		})
	}
}

func TestOpenUnknownSink(t *testing.T) {
	_, err := Open(t.TempDir(), "s3", codec.JSON(), false, nil)
	assert.Error(t, err)
}
