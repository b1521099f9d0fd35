package demo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cfgtree/pkg/codec"
	"github.com/mesh-intelligence/cfgtree/pkg/config"
)

const uiDump = `"ui.color.Named:code":"","ui.color.Rgb:0":0.0,"ui.color.Rgb:1":0.0,"ui.color.Rgb:2":0.0,"ui.color.Rgba:0.0":0.0,"ui.color.Rgba:0.1":0.0,"ui.color.Rgba:0.2":0.0,"ui.color.Rgba:0.3":0.0,"ui.color.discrim":"White","ui.thickness":3`

const windowDump = `"window.accent":"#3366cc","window.autosave":"30s","window.fullscreen":false,"window.height":24,"window.opacity":1.0,"window.title":"cfgtree","window.width":80`

func TestDefaultsDump(t *testing.T) {
	c := codec.JSON()
	s := NewApp(c)
	data, err := c.Serialize(s.App.Store())
	require.NoError(t, err)
	assert.Equal(t, "{"+uiDump+","+windowDump+"}", string(data))
}

func TestReloadPayload(t *testing.T) {
	c := codec.JSON()
	s := NewApp(c)
	require.NoError(t, c.Deserialize(s.App.Store(),
		[]byte(`{"ui.thickness":5,"ui.color.discrim":"Named","ui.color.Named:code":"red"}`)))

	r := s.UI.Read().(config.Record)
	thickness, _ := config.Get[int32](r, "thickness")
	assert.Equal(t, int32(5), thickness)
	color, _ := config.Get[config.VariantValue](r, "color")
	assert.Equal(t, "Named", color.Name)
	code, _ := config.Get[string](color.Fields, "code")
	assert.Equal(t, "red", code)
}

func TestReadWindow(t *testing.T) {
	c := codec.JSON()
	s := NewApp(c)
	require.NoError(t, c.Deserialize(s.App.Store(),
		[]byte(`{"window.title":"main","window.autosave":"1m","window.fullscreen":true}`)))

	w, err := s.ReadWindow()
	require.NoError(t, err)
	assert.Equal(t, Window{
		Title:      "main",
		Width:      80,
		Height:     24,
		Fullscreen: true,
		Opacity:    1,
		Autosave:   time.Minute,
		Accent:     DefaultAccent,
	}, w)
}

func TestValidate(t *testing.T) {
	c := codec.JSON()
	s := NewApp(c)
	require.NoError(t, config.Validate(s.App))

	require.NoError(t, c.Deserialize(s.App.Store(), []byte(`{"window.title":"","window.opacity":0.1}`)))
	err := config.Validate(s.App)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrConstraint)
	assert.Contains(t, err.Error(), "window.title")
	assert.Contains(t, err.Error(), "window.opacity")
}

func TestRootsRegistered(t *testing.T) {
	s := NewApp(codec.JSON())
	keys := make([]string, 0, 2)
	for _, r := range s.App.Roots() {
		keys = append(keys, r.Key())
	}
	assert.Equal(t, []string{UIKey, WindowKey}, keys)
}
