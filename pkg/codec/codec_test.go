package codec

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cfgtree/pkg/config"
	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

const defaultDump = `{"ui.color.Named:code":"","ui.color.Rgb:0":0.0,"ui.color.Rgb:1":0.0,"ui.color.Rgb:2":0.0,"ui.color.Rgba:0.0":0.0,"ui.color.Rgba:0.1":0.0,"ui.color.Rgba:0.2":0.0,"ui.color.Rgba:0.3":0.0,"ui.color.discrim":"White","ui.thickness":3}`

const reload = `{"ui.thickness":5,"ui.color.discrim":"Named","ui.color.Named:code":"red"}`

func f32() *config.Scalar[float32, config.NumberMeta[float32]] {
	return config.Number(config.NumberMeta[float32]{})
}

func settings() *config.StructField {
	return config.Struct("Settings",
		config.Member("thickness", config.Number(config.NumberMeta[int32]{Default: 3})),
		config.Member("color", config.Enum("Color", "White",
			config.Variant("White"),
			config.Variant("Rgb", config.Member("0", f32()), config.Member("1", f32()), config.Member("2", f32())),
			config.Variant("Rgba", config.Member("0", config.Struct("Rgba",
				config.Member("0", f32()), config.Member("1", f32()), config.Member("2", f32()), config.Member("3", f32()),
			))),
			config.Variant("Named", config.Member("code", config.String(config.StringMeta{}))),
		)),
	)
}

func newApp(t *testing.T, c *Codec) (*config.App, *config.Root) {
	t.Helper()
	app := config.NewApp()
	root := app.Init("ui", settings(), c)
	return app, root
}

func TestSerializeDefaults(t *testing.T) {
	c := JSON()
	app, _ := newApp(t, c)
	data, err := c.Serialize(app.Store())
	require.NoError(t, err)
	assert.Equal(t, defaultDump, string(data))
}

func TestDeserializeReloadPayload(t *testing.T) {
	c := JSON()
	app, root := newApp(t, c)

	q := app.Store().Query(config.ValueAccess[float32]())
	h, _ := q.Lookup([]string{"ui", "color", "Rgb:1"})
	config.SetValue(q, h, float32(0.25))
	q.Release()

	require.NoError(t, c.Deserialize(app.Store(), []byte(reload)))

	r := root.Read().(config.Record)
	thickness, _ := config.Get[int32](r, "thickness")
	assert.Equal(t, int32(5), thickness)
	color, _ := config.Get[config.VariantValue](r, "color")
	assert.Equal(t, "Named", color.Name)
	code, _ := config.Get[string](color.Fields, "code")
	assert.Equal(t, "red", code)

	data, err := c.Serialize(app.Store())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ui.color.Rgb:1":0.25`, "other variants keep their stored fields")
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []*Codec{JSON(), Pretty(), YAML()} {
		t.Run(c.Format().Name(), func(t *testing.T) {
			app, root := newApp(t, c)
			defaults := root.Read()
			data, err := c.Serialize(app.Store())
			require.NoError(t, err)
			require.NoError(t, c.Deserialize(app.Store(), data))
			assert.Equal(t, defaults, root.Read())

			q := app.Store().Query(config.ValueAccess[float32]())
			h, _ := q.Lookup([]string{"ui", "color", "Rgba:0", "3"})
			config.SetValue(q, h, float32(0.75))
			q.Release()
			data, err = c.Serialize(app.Store())
			require.NoError(t, err)

			fresh := New(c.Format())
			other, otherRoot := newApp(t, fresh)
			require.NoError(t, fresh.Deserialize(other.Store(), data))
			assert.Equal(t, root.Read(), otherRoot.Read())
			again, err := fresh.Serialize(other.Store())
			require.NoError(t, err)
			assert.Equal(t, string(data), string(again))
		})
	}
}

func TestRoundTripAcrossStores(t *testing.T) {
	src := JSON()
	app, _ := newApp(t, src)
	q := app.Store().Query(config.ValueAccess[config.Discriminant]())
	h, _ := q.Lookup([]string{"ui", "color", "discrim"})
	config.SetValue(q, h, config.Discriminant{Index: 2})
	q.Release()
	data, err := src.Serialize(app.Store())
	require.NoError(t, err)

	dst := JSON()
	other, root := newApp(t, dst)
	require.NoError(t, dst.Deserialize(other.Store(), data))
	color, _ := config.Get[config.VariantValue](root.Read().(config.Record), "color")
	assert.Equal(t, "Rgba", color.Name)
}

func TestDeserializeIgnoresUnknownKeys(t *testing.T) {
	var logs bytes.Buffer
	c := JSON(WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	app, root := newApp(t, c)
	before := root.Read()

	require.NoError(t, c.Deserialize(app.Store(), []byte(`{"ui.width":10,"other.key":"x"}`)))
	assert.Equal(t, before, root.Read())
	assert.Contains(t, logs.String(), "ignoring unknown key")
}

func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		malformed bool
		key       string
		cause     error
	}{
		{name: "not json", input: `{"ui.thickness":`, malformed: true},
		{name: "array", input: `[1,2]`, malformed: true},
		{name: "wrong type", input: `{"ui.thickness":"wide"}`, key: "ui.thickness", cause: ErrType},
		{name: "overflow", input: `{"ui.thickness":4294967296}`, key: "ui.thickness", cause: ErrRange},
		{name: "fraction for int", input: `{"ui.thickness":1.5}`, key: "ui.thickness", cause: ErrType},
		{name: "unknown variant", input: `{"ui.color.discrim":"Blue"}`, key: "ui.color.discrim", cause: config.ErrUnknownVariant},
		{name: "nested object", input: `{"ui.color.Named:code":{"a":1}}`, key: "ui.color.Named:code", cause: ErrType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := JSON()
			app, _ := newApp(t, c)
			err := c.Deserialize(app.Store(), []byte(tt.input))
			require.Error(t, err)
			if tt.malformed {
				assert.ErrorIs(t, err, ErrMalformed)
				return
			}
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.key, de.Key)
			assert.ErrorIs(t, err, ErrDecode)
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestDeserializeAppliesKeysBeforeFailure(t *testing.T) {
	c := JSON()
	app, root := newApp(t, c)
	err := c.Deserialize(app.Store(), []byte(`{"ui.thickness":9,"ui.color.discrim":7,"ui.color.Named:code":"late"}`))
	require.ErrorIs(t, err, ErrDecode)

	r := root.Read().(config.Record)
	thickness, _ := config.Get[int32](r, "thickness")
	assert.Equal(t, int32(9), thickness, "keys before the failing one stay applied")

	data, err := c.Serialize(app.Store())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ui.color.Named:code":""`, "keys after the failing one are not applied")
}

func TestDeserializeLeavesGenerationsByDefault(t *testing.T) {
	c := JSON()
	app, root := newApp(t, c)
	before := root.Changed()
	require.NoError(t, c.Deserialize(app.Store(), []byte(`{"ui.thickness":5}`)))
	assert.True(t, before.Equal(root.Changed()))
}

func TestWithGenerationBump(t *testing.T) {
	c := JSON(WithGenerationBump())
	app, root := newApp(t, c)
	before := root.Changed()
	require.NoError(t, c.Deserialize(app.Store(), []byte(`{"ui.thickness":5}`)))
	assert.False(t, before.Equal(root.Changed()))
}

func TestWithMatch(t *testing.T) {
	c := JSON(WithMatch("ui/color/Rgb:*"))
	app, root := newApp(t, c)
	data, err := c.Serialize(app.Store())
	require.NoError(t, err)
	assert.Equal(t, `{"ui.color.Rgb:0":0.0,"ui.color.Rgb:1":0.0,"ui.color.Rgb:2":0.0}`, string(data))

	require.NoError(t, c.Deserialize(app.Store(), []byte(`{"ui.thickness":8,"ui.color.Rgb:2":1}`)))
	r := root.Read().(config.Record)
	thickness, _ := config.Get[int32](r, "thickness")
	assert.Equal(t, int32(3), thickness, "keys outside the pattern are not loaded")
	data, err = c.Serialize(app.Store())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ui.color.Rgb:2":1.0`)

	bad := JSON(WithMatch("ui/["))
	badApp, _ := newApp(t, bad)
	_, err = bad.Serialize(badApp.Store())
	assert.Error(t, err)
}

func TestPrettyAndYAML(t *testing.T) {
	c := Pretty()
	app, _ := newApp(t, c)
	data, err := c.Serialize(app.Store())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"ui.color.Named:code\": \"\",\n"))
	assert.True(t, strings.HasSuffix(string(data), "\"ui.thickness\": 3\n}"))

	y := YAML()
	yapp, _ := newApp(t, y)
	data, err = y.Serialize(yapp.Store())
	require.NoError(t, err)
	assert.Contains(t, string(data), "ui.color.Rgb:0: 0.0\n")
	assert.Contains(t, string(data), "ui.color.discrim: White\n")
	assert.Contains(t, string(data), "ui.thickness: 3\n")

	require.NoError(t, y.Deserialize(yapp.Store(), []byte("ui.thickness: 6\nui.color.discrim: Rgb\nui.color.Rgb:0: 0.5\n")))
	entries, err := y.Entries(yapp.Store())
	require.NoError(t, err)
	assert.Contains(t, entries, Entry{Key: "ui.thickness", Value: int64(6)})
	assert.Contains(t, entries, Entry{Key: "ui.color.Rgb:0", Value: float32(0.5)})

	err = y.Deserialize(yapp.Store(), []byte("- a\n- b\n"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestTOML(t *testing.T) {
	c := TOML()
	app, root := newApp(t, c)
	data, err := c.Serialize(app.Store())
	require.NoError(t, err)
	assert.Contains(t, string(data), "'ui.color.discrim' = 'White'\n")
	assert.Contains(t, string(data), "'ui.thickness' = 3\n")

	require.NoError(t, c.Deserialize(app.Store(), data))
	v, _ := config.Get[int32](root.Read().(config.Record), "thickness")
	assert.Equal(t, int32(3), v)

	tables := "[ui]\nthickness = 8\n\n[ui.color]\ndiscrim = 'Rgb'\n'Rgb:1' = 0.25\n"
	require.NoError(t, c.Deserialize(app.Store(), []byte(tables)))
	entries, err := c.Entries(app.Store())
	require.NoError(t, err)
	assert.Contains(t, entries, Entry{Key: "ui.thickness", Value: int64(8)})
	assert.Contains(t, entries, Entry{Key: "ui.color.discrim", Value: "Rgb"})
	assert.Contains(t, entries, Entry{Key: "ui.color.Rgb:1", Value: float32(0.25)})

	err = c.Deserialize(app.Store(), []byte("thickness = = 1"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		bits int
		want string
	}{
		{0, 64, "0.0"},
		{3, 64, "3.0"},
		{-2.5, 64, "-2.5"},
		{0.1, 32, "0.1"},
		{1234.5, 64, "1234.5"},
		{0.0001, 64, "0.0001"},
		{1e-7, 64, "1e-7"},
		{1.5e-7, 64, "1.5e-7"},
		{1e16, 64, "1e16"},
		{123e20, 64, "1.23e22"},
		{1e15, 64, "1000000000000000.0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			in := tt.in
			if tt.bits == 32 {
				in = float64(float32(in))
			}
			assert.Equal(t, tt.want, formatFloat(in, tt.bits))
		})
	}
}

func TestExtraTypes(t *testing.T) {
	c := JSON()
	app := config.NewApp()
	app.Init("net", config.Struct("Net",
		config.Member("timeout", config.Duration(config.NumberMeta[time.Duration]{Default: 1500 * time.Millisecond})),
		config.Member("accent", config.Color(config.ColorMeta{Default: colorful.Color{R: 1}})),
		config.Member("retries", config.Number(config.NumberMeta[uint8]{Default: 3})),
		config.Member("tls", config.Bool(config.BoolMeta{})),
	), c)

	data, err := c.Serialize(app.Store())
	require.NoError(t, err)
	assert.Equal(t, `{"net.accent":"#ff0000","net.retries":3,"net.timeout":"1.5s","net.tls":false}`, string(data))

	require.NoError(t, c.Deserialize(app.Store(), []byte(`{"net.accent":"#00ff00","net.retries":4,"net.timeout":"2m","net.tls":true}`)))
	data, err = c.Serialize(app.Store())
	require.NoError(t, err)
	assert.Equal(t, `{"net.accent":"#00ff00","net.retries":4,"net.timeout":"2m0s","net.tls":true}`, string(data))

	err = c.Deserialize(app.Store(), []byte(`{"net.retries":-1}`))
	assert.ErrorIs(t, err, ErrRange)
}

type point struct{ X, Y int }

func TestRegisterCustomType(t *testing.T) {
	c := JSON()
	assert.False(t, c.Supports(config.TypeOf[point]()))
	assert.Panics(t, func() { config.NewApp().Init("p", config.Bare(point{}), c) })

	Register(c, Vtable[point]{
		Encode: func(_ *tree.Query, _ tree.Handle, p point) (any, error) {
			return Raw(fmt.Sprintf("[%d,%d]", p.X, p.Y)), nil
		},
		Decode: func(_ *tree.Query, _ tree.Handle, raw any) (point, error) {
			return point{}, typeError("point", raw)
		},
	})
	app := config.NewApp()
	app.Init("p", config.Bare(point{X: 1, Y: 2}), c)
	data, err := c.Serialize(app.Store())
	require.NoError(t, err)
	assert.Equal(t, `{"p":[1,2]}`, string(data))
	assert.Equal(t, "codec.Codec[json]", config.Signature(c))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, int64(5), ParseValue("5"))
	assert.Equal(t, 0.5, ParseValue("0.5"))
	assert.Equal(t, true, ParseValue("true"))
	assert.Equal(t, "red", ParseValue(`"red"`))
	assert.Equal(t, "red", ParseValue("red"))
	assert.Equal(t, Raw(`{"a":1}`), ParseValue(`{"a":1}`))
}
