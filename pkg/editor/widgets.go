package editor

import (
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/mesh-intelligence/cfgtree/pkg/config"
	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

func registerDefaults(e *Editor) {
	Register(e, NumberWidget[int]())
	Register(e, NumberWidget[int8]())
	Register(e, NumberWidget[int16]())
	Register(e, NumberWidget[int32]())
	Register(e, NumberWidget[int64]())
	Register(e, NumberWidget[uint]())
	Register(e, NumberWidget[uint8]())
	Register(e, NumberWidget[uint16]())
	Register(e, NumberWidget[uint32]())
	Register(e, NumberWidget[uint64]())
	Register(e, NumberWidget[float32]())
	Register(e, NumberWidget[float64]())
	Register(e, StringWidget)
	Register(e, BoolWidget)
	Register(e, DurationWidget)
	Register(e, ColorWidget)
	Register(e, DiscriminantWidget)
}

// scratchText edits v through a text buffer kept in the node's Scratch.
// parse turns text into a value; format renders the stored value while the
// user is not typing. Invalid text is kept and flagged; the value only
// changes on a successful parse.
func scratchText[T comparable](ctx Context, ui UI, v *T, opts TextOptions, format func(T) string, parse func(string) (T, error), step func(T, int) T) bool {
	s := ctx.Scratch()
	text := format(*v)
	if s.Editing {
		text = s.Text
	}
	opts.Invalid = s.Invalid
	resp := ui.TextInput(ctx.Label, text, opts)

	switch {
	case resp.Steps != 0 && step != nil:
		*s = Scratch{}
		next := step(*v, resp.Steps)
		if next == *v {
			return false
		}
		*v = next
		return true
	case resp.Changed:
		s.Editing, s.Text = true, resp.Text
		parsed, err := parse(resp.Text)
		if err != nil {
			s.Invalid = err.Error()
			return false
		}
		s.Invalid = ""
		if parsed == *v {
			return false
		}
		*v = parsed
		return true
	case resp.LostFocus:
		*s = Scratch{}
	}
	return false
}

// NumberWidget edits numbers as text, clamped to the node's NumberMeta.
func NumberWidget[T config.Numeric]() Widget[T] {
	return func(ctx Context, ui UI, v *T) bool {
		meta, _ := tree.Get[config.NumberMeta[T]](ctx.Query, ctx.Handle)
		return scratchText(ctx, ui, v, TextOptions{Slider: meta.Slider},
			formatNumber[T],
			func(s string) (T, error) {
				n, err := parseNumber[T](s)
				if err != nil {
					return n, err
				}
				return meta.Clamp(n), nil
			},
			func(cur T, steps int) T {
				return meta.Clamp(stepNumber(cur, meta.Step(), steps))
			},
		)
	}
}

func formatNumber[T config.Numeric](v T) string {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(uint64(v), 10)
	default:
		return strconv.FormatInt(int64(v), 10)
	}
}

type numError string

func (e numError) Error() string { return string(e) }

const errNotNumber numError = "not a number"

func parseNumber[T config.Numeric](s string) (T, error) {
	t := reflect.TypeFor[T]()
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return 0, errNotNumber
		}
		return T(f), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return 0, errNotNumber
		}
		return T(u), nil
	default:
		i, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return 0, errNotNumber
		}
		return T(i), nil
	}
}

// stepNumber adds steps*step to cur. Integers saturate at the bounds of T.
func stepNumber[T config.Numeric](cur, step T, steps int) T {
	t := reflect.TypeFor[T]()
	bits := t.Bits()
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		return cur + step*T(steps)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		hi := uint64(math.MaxUint64) >> (64 - bits)
		n := steps
		if n < 0 {
			n = -n
		}
		c, d := uint64(cur), uint64(step)*uint64(n)
		if steps < 0 {
			if d > c {
				return 0
			}
			return T(c - d)
		}
		if d > hi-c {
			return T(hi)
		}
		return T(c + d)
	default:
		hi := int64(math.MaxInt64) >> (64 - bits)
		lo := -hi - 1
		c, d := int64(cur), int64(step)*int64(steps)
		if d > 0 && c > hi-d {
			return T(hi)
		}
		if d < 0 && c < lo-d {
			return T(lo)
		}
		return T(c + d)
	}
}

// StringWidget edits strings, truncating to StringMeta.MaxLength.
func StringWidget(ctx Context, ui UI, v *string) bool {
	meta, _ := tree.Get[config.StringMeta](ctx.Query, ctx.Handle)
	resp := ui.TextInput(ctx.Label, *v, TextOptions{
		Multiline: meta.Multiline,
		MaxLength: meta.MaxLength,
		Invalid:   ctx.Scratch().Invalid,
	})
	if !resp.Changed {
		return false
	}
	ctx.Scratch().Invalid = ""
	text := resp.Text
	if meta.MaxLength > 0 {
		if r := []rune(text); len(r) > meta.MaxLength {
			text = string(r[:meta.MaxLength])
		}
	}
	if text == *v {
		return false
	}
	*v = text
	return true
}

// BoolWidget edits booleans with a checkbox.
func BoolWidget(ctx Context, ui UI, v *bool) bool {
	resp := ui.Checkbox(ctx.Label, *v)
	if !resp.Changed || resp.Checked == *v {
		return false
	}
	*v = resp.Checked
	return true
}

// DurationWidget edits durations as Go duration strings.
func DurationWidget(ctx Context, ui UI, v *time.Duration) bool {
	meta, _ := tree.Get[config.NumberMeta[time.Duration]](ctx.Query, ctx.Handle)
	return scratchText(ctx, ui, v, TextOptions{},
		time.Duration.String,
		func(s string) (time.Duration, error) {
			d, err := time.ParseDuration(s)
			if err != nil {
				return 0, numError("not a duration")
			}
			return meta.Clamp(d), nil
		},
		func(cur time.Duration, steps int) time.Duration {
			step := meta.Step()
			if step == 1 {
				step = time.Second
			}
			return meta.Clamp(cur + time.Duration(steps)*step)
		},
	)
}

// ColorWidget edits colours as hex strings.
func ColorWidget(ctx Context, ui UI, v *colorful.Color) bool {
	return scratchText(ctx, ui, v, TextOptions{},
		colorful.Color.Hex,
		func(s string) (colorful.Color, error) {
			c, err := colorful.Hex(s)
			if err != nil {
				return colorful.Color{}, numError("not a colour")
			}
			return c, nil
		},
		nil,
	)
}

// DiscriminantWidget selects the active variant of an enum.
func DiscriminantWidget(ctx Context, ui UI, v *config.Discriminant) bool {
	meta := tree.MustGet[config.DiscriminantMeta](ctx.Query, ctx.Handle)
	resp := ui.Choice(ctx.Label, meta.Variants, v.Index)
	if !resp.Changed || resp.Selected == v.Index || resp.Selected < 0 || resp.Selected >= len(meta.Variants) {
		return false
	}
	v.Index = resp.Selected
	return true
}
