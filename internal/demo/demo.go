// Package demo declares the settings schema the cfgtree command edits.
package demo

import (
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/mesh-intelligence/cfgtree/pkg/config"
)

// Root keys.
const (
	UIKey     = "ui"
	WindowKey = "window"
)

func component() *config.Scalar[float32, config.NumberMeta[float32]] {
	return config.Number(config.NumberMeta[float32]{
		Min:       config.Limit[float32](0),
		Max:       config.Limit[float32](1),
		Precision: config.Limit[float32](0.05),
		Slider:    true,
	})
}

// UI is the line style settings: a thickness and a colour that is white,
// an RGB or RGBA triple, or a named colour.
func UI() *config.StructField {
	return config.Struct("Settings",
		config.Member("thickness", config.Number(config.NumberMeta[int32]{
			Default: 3,
			Min:     config.Limit[int32](0),
			Max:     config.Limit[int32](64),
		})),
		config.Member("color", config.Enum("Color", "White",
			config.Variant("White"),
			config.Variant("Rgb",
				config.Member("0", component()),
				config.Member("1", component()),
				config.Member("2", component()),
			),
			config.Variant("Rgba", config.Member("0", config.Struct("Rgba",
				config.Member("0", component()),
				config.Member("1", component()),
				config.Member("2", component()),
				config.Member("3", component()),
			))),
			config.Variant("Named", config.Member("code", config.String(config.StringMeta{
				MaxLength: 32,
			}))),
		)),
	)
}

// Window is the decoded window root.
type Window struct {
	Title      string         `config:"title"`
	Width      uint16         `config:"width"`
	Height     uint16         `config:"height"`
	Fullscreen bool           `config:"fullscreen"`
	Opacity    float64        `config:"opacity"`
	Autosave   time.Duration  `config:"autosave"`
	Accent     colorful.Color `config:"accent"`
}

// DefaultAccent is the accent colour before any edit.
var DefaultAccent = colorful.Color{R: 0.2, G: 0.4, B: 0.8}

// WindowSettings declares the window root.
func WindowSettings() *config.StructField {
	return config.Struct("Window",
		config.Member("title", config.String(config.StringMeta{
			Default:    "cfgtree",
			MaxLength:  64,
			Constraint: `len(value) > 0`,
		})),
		config.Member("width", config.Number(config.NumberMeta[uint16]{
			Default: 80,
			Min:     config.Limit[uint16](20),
			Max:     config.Limit[uint16](400),
		})),
		config.Member("height", config.Number(config.NumberMeta[uint16]{
			Default: 24,
			Min:     config.Limit[uint16](10),
			Max:     config.Limit[uint16](200),
		})),
		config.Member("fullscreen", config.Bool(config.BoolMeta{})),
		config.Member("opacity", config.Number(config.NumberMeta[float64]{
			Default:    1,
			Min:        config.Limit(0.0),
			Max:        config.Limit(1.0),
			Precision:  config.Limit(0.1),
			Slider:     true,
			Constraint: `value >= 0.2`,
		})),
		config.Member("autosave", config.Duration(config.NumberMeta[time.Duration]{
			Default:   30 * time.Second,
			Min:       config.Limit(time.Second),
			Precision: config.Limit(5 * time.Second),
		})),
		config.Member("accent", config.Color(config.ColorMeta{Default: DefaultAccent})),
	)
}

// Schema is the registered roots of the demo.
type Schema struct {
	App    *config.App
	UI     *config.Root
	Window *config.Root
}

// NewApp registers both demo roots with m installed.
func NewApp(m config.Manager, opts ...config.Option) *Schema {
	app := config.NewApp(opts...)
	return &Schema{
		App:    app,
		UI:     app.Init(UIKey, UI(), m),
		Window: app.Init(WindowKey, WindowSettings(), m),
	}
}

// ReadWindow decodes the window root.
func (s *Schema) ReadWindow() (Window, error) {
	return config.ReadAs[Window](s.Window)
}
