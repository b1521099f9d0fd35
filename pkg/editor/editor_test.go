package editor

import (
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cfgtree/pkg/codec"
	"github.com/mesh-intelligence/cfgtree/pkg/config"
	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// scriptUI records every widget drawn and replays scripted responses keyed
// by label.
type scriptUI struct {
	drawn     []string
	groups    []string
	texts     map[string]string
	invalid   map[string]string
	responses map[string]Response
	collapsed map[string]bool
}

func newScriptUI() *scriptUI {
	return &scriptUI{
		texts:     make(map[string]string),
		invalid:   make(map[string]string),
		responses: make(map[string]Response),
		collapsed: make(map[string]bool),
	}
}

func (u *scriptUI) respond(label string) Response {
	r, ok := u.responses[label]
	if ok {
		delete(u.responses, label)
	}
	return r
}

func (u *scriptUI) Group(label string, body func()) {
	u.groups = append(u.groups, label)
	if !u.collapsed[label] {
		body()
	}
}

func (u *scriptUI) TextInput(label, text string, opts TextOptions) Response {
	u.drawn = append(u.drawn, label)
	u.texts[label] = text
	u.invalid[label] = opts.Invalid
	return u.respond(label)
}

func (u *scriptUI) Checkbox(label string, checked bool) Response {
	u.drawn = append(u.drawn, label)
	return u.respond(label)
}

func (u *scriptUI) Choice(label string, options []string, selected int) Response {
	u.drawn = append(u.drawn, label)
	u.texts[label] = options[selected]
	return u.respond(label)
}

func f32() *config.Scalar[float32, config.NumberMeta[float32]] {
	return config.Number(config.NumberMeta[float32]{})
}

func settings() *config.StructField {
	return config.Struct("Settings",
		config.Member("thickness", config.Number(config.NumberMeta[int32]{Default: 3, Min: config.Limit[int32](1), Max: config.Limit[int32](10)})),
		config.Member("color", config.Enum("Color", "White",
			config.Variant("White"),
			config.Variant("Rgb", config.Member("0", f32()), config.Member("1", f32()), config.Member("2", f32())),
			config.Variant("Rgba", config.Member("0", config.Struct("Rgba",
				config.Member("0", f32()), config.Member("1", f32()), config.Member("2", f32()), config.Member("3", f32()),
			))),
			config.Variant("Named", config.Member("code", config.String(config.StringMeta{MaxLength: 8}))),
		)),
	)
}

func setup(t *testing.T) (*Editor, *codec.Codec, *config.App, *config.Root) {
	t.Helper()
	ed, c := New(), codec.JSON()
	app := config.NewApp()
	root := app.Init("ui", settings(), config.Chain{c, ed})
	return ed, c, app, root
}

func TestShowSkipsIrrelevantVariantsButCodecKeepsThem(t *testing.T) {
	ed, c, app, _ := setup(t)

	q := app.Store().Query(tree.Exclusive)
	rgb, ok := q.Lookup([]string{"ui", "color", "Rgb:0"})
	require.True(t, ok)
	assert.False(t, tree.IsRelevant(q, rgb), "Rgb is irrelevant while White is active")
	q.Release()

	ui := newScriptUI()
	assert.False(t, ed.Show(ui, app.Store()))
	assert.Equal(t, []string{"thickness", "discrim"}, ui.drawn)
	assert.Equal(t, []string{"ui", "color"}, ui.groups)
	for _, label := range ui.drawn {
		assert.NotContains(t, label, "Rgb")
	}

	data, err := c.Serialize(app.Store())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ui.color.Rgb:0":0.0`)
	assert.Contains(t, string(data), `"ui.color.Rgb:2":0.0`)
}

func TestShowDrawsActiveVariant(t *testing.T) {
	ed, _, app, root := setup(t)
	ui := newScriptUI()
	ui.responses["discrim"] = Response{Changed: true, Selected: 2}
	assert.True(t, ed.Show(ui, app.Store()))

	ui = newScriptUI()
	ed.Show(ui, app.Store())
	assert.Equal(t, []string{"thickness", "discrim", "0", "1", "2", "3"}, ui.drawn)
	assert.Equal(t, []string{"ui", "color", "Rgba:0"}, ui.groups)
	assert.Equal(t, "Rgba", ui.texts["discrim"])

	color, _ := config.Get[config.VariantValue](root.Read().(config.Record), "color")
	assert.Equal(t, "Rgba", color.Name)
}

func TestCollapsedGroupIsNotDrawn(t *testing.T) {
	ed, _, app, _ := setup(t)
	ui := newScriptUI()
	ui.collapsed["color"] = true
	ed.Show(ui, app.Store())
	assert.Equal(t, []string{"thickness"}, ui.drawn)
}

func TestEditBumpsGeneration(t *testing.T) {
	ed, _, app, root := setup(t)
	before := root.Changed()

	ui := newScriptUI()
	ui.responses["thickness"] = Response{Changed: true, Text: "7"}
	assert.True(t, ed.Show(ui, app.Store()))
	assert.False(t, before.Equal(root.Changed()))

	thickness, _ := config.Get[int32](root.Read().(config.Record), "thickness")
	assert.Equal(t, int32(7), thickness)
}

func TestNumberWidget(t *testing.T) {
	tests := []struct {
		name    string
		resp    Response
		want    int32
		changed bool
		invalid bool
	}{
		{name: "parse", resp: Response{Changed: true, Text: "5"}, want: 5, changed: true},
		{name: "clamp high", resp: Response{Changed: true, Text: "99"}, want: 10, changed: true},
		{name: "clamp low", resp: Response{Changed: true, Text: "-4"}, want: 1, changed: true},
		{name: "garbage", resp: Response{Changed: true, Text: "3x"}, want: 3, invalid: true},
		{name: "step up", resp: Response{Steps: 2}, want: 5, changed: true},
		{name: "step down saturates at min", resp: Response{Steps: -10}, want: 1, changed: true},
		{name: "same value", resp: Response{Changed: true, Text: "3"}, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed, _, app, root := setup(t)
			ui := newScriptUI()
			ui.responses["thickness"] = tt.resp
			assert.Equal(t, tt.changed, ed.Show(ui, app.Store()))

			thickness, _ := config.Get[int32](root.Read().(config.Record), "thickness")
			assert.Equal(t, tt.want, thickness)

			// Next frame shows the scratch text and its validity.
			ed.Show(ui, app.Store())
			if tt.invalid {
				assert.Equal(t, "3x", ui.texts["thickness"])
				assert.Equal(t, "not a number", ui.invalid["thickness"])
			} else {
				assert.Empty(t, ui.invalid["thickness"])
			}
		})
	}
}

func TestShowReportsStaleFrame(t *testing.T) {
	ed, _, app, _ := setup(t)
	ui := newScriptUI()
	assert.False(t, ed.Show(ui, app.Store()))
	assert.False(t, ed.Stale())

	ui.responses["thickness"] = Response{Changed: true, Text: "3x"}
	ed.Show(ui, app.Store())
	assert.Empty(t, ui.invalid["thickness"], "the marker is set after the widget drew")
	assert.True(t, ed.Stale())

	ed.Show(ui, app.Store())
	assert.Equal(t, "not a number", ui.invalid["thickness"])
	assert.False(t, ed.Stale())

	ui.responses["thickness"] = Response{Changed: true, Text: "4"}
	assert.True(t, ed.Show(ui, app.Store()))
	assert.True(t, ed.Stale(), "clearing the marker needs a redraw too")
	ed.Show(ui, app.Store())
	assert.Empty(t, ui.invalid["thickness"])
}

func TestConstraintRejectionMarksStale(t *testing.T) {
	ed := New()
	app := config.NewApp()
	app.Init("port", config.Number(config.NumberMeta[uint16]{Default: 8080, Constraint: "value >= 1024"}), ed)

	ui := newScriptUI()
	ui.responses["port"] = Response{Changed: true, Text: "80"}
	ed.Show(ui, app.Store())
	assert.True(t, ed.Stale())
}

func TestScratchClearedOnLostFocus(t *testing.T) {
	ed, _, app, _ := setup(t)
	ui := newScriptUI()
	ui.responses["thickness"] = Response{Changed: true, Text: "oops"}
	ed.Show(ui, app.Store())
	ui.responses["thickness"] = Response{LostFocus: true}
	ed.Show(ui, app.Store())
	ed.Show(ui, app.Store())
	assert.Equal(t, "3", ui.texts["thickness"])
	assert.Empty(t, ui.invalid["thickness"])
}

func TestStringWidgetTruncates(t *testing.T) {
	ed, _, app, root := setup(t)
	q := app.Store().Query(config.ValueAccess[config.Discriminant]())
	h, _ := q.Lookup([]string{"ui", "color", "discrim"})
	config.SetValue(q, h, config.Discriminant{Index: 3})
	q.Release()

	ui := newScriptUI()
	ui.responses["Named:code"] = Response{Changed: true, Text: "mediumseagreen"}
	assert.True(t, ed.Show(ui, app.Store()))
	color, _ := config.Get[config.VariantValue](root.Read().(config.Record), "color")
	code, _ := config.Get[string](color.Fields, "code")
	assert.Equal(t, "mediumse", code)
}

func TestConstraintRejectsEdit(t *testing.T) {
	ed := New()
	app := config.NewApp()
	root := app.Init("port", config.Number(config.NumberMeta[uint16]{Default: 8080, Constraint: "value >= 1024"}), ed)

	ui := newScriptUI()
	ui.responses["port"] = Response{Changed: true, Text: "80"}
	assert.False(t, ed.Show(ui, app.Store()))
	assert.Equal(t, uint16(8080), root.Read())

	ed.Show(ui, app.Store())
	assert.Equal(t, "must satisfy value >= 1024", ui.invalid["port"])
}

func TestOtherWidgets(t *testing.T) {
	ed := New()
	app := config.NewApp()
	root := app.Init("net", config.Struct("Net",
		config.Member("tls", config.Bool(config.BoolMeta{})),
		config.Member("timeout", config.Duration(config.NumberMeta[time.Duration]{Default: time.Second})),
		config.Member("accent", config.Color(config.ColorMeta{})),
	), ed)

	ui := newScriptUI()
	ui.responses["tls"] = Response{Changed: true, Checked: true}
	ui.responses["timeout"] = Response{Steps: 3}
	ui.responses["accent"] = Response{Changed: true, Text: "#336699"}
	assert.True(t, ed.Show(ui, app.Store()))

	r := root.Read().(config.Record)
	tls, _ := config.Get[bool](r, "tls")
	timeout, _ := config.Get[time.Duration](r, "timeout")
	accent, _ := config.Get[colorful.Color](r, "accent")
	assert.True(t, tls)
	assert.Equal(t, 4*time.Second, timeout)
	assert.Equal(t, "#336699", accent.Hex())

	ui.responses["accent"] = Response{Changed: true, Text: "blue"}
	assert.False(t, ed.Show(ui, app.Store()))
	ed.Show(ui, app.Store())
	assert.Equal(t, "not a colour", ui.invalid["accent"])
}

func TestStepNumberSaturates(t *testing.T) {
	assert.Equal(t, uint8(255), stepNumber[uint8](250, 1, 10))
	assert.Equal(t, uint8(0), stepNumber[uint8](3, 1, -10))
	assert.Equal(t, int8(-128), stepNumber[int8](-120, 5, -4))
	assert.Equal(t, int64(9223372036854775807), stepNumber[int64](9223372036854775800, 10, 1))
	assert.InDelta(t, 1.5, stepNumber[float64](0.5, 0.25, 4), 1e-9)
}

func TestUnsupportedTypePanics(t *testing.T) {
	type custom struct{}
	assert.False(t, New().Supports(config.TypeOf[custom]()))
	assert.Panics(t, func() { config.NewApp().Init("c", config.Bare(custom{}), New()) })
}
