package codec

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/mesh-intelligence/cfgtree/pkg/config"
	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// Vtable converts scalars of type T to and from wire values. Wire values
// are nil, bool, int64, uint64, float32, float64, string or Raw.
type Vtable[T any] struct {
	Encode func(q *tree.Query, h tree.Handle, v T) (any, error)
	Decode func(q *tree.Query, h tree.Handle, v any) (T, error)
	// Kinds lists extra record kinds Encode and Decode read, such as
	// metadata.
	Kinds []tree.Kind
}

// binding is the type-erased form of a Vtable.
type binding struct {
	ty     config.ScalarType
	value  tree.Kind
	kinds  []tree.Kind
	encode func(q *tree.Query, h tree.Handle) (any, error)
	decode func(q *tree.Query, h tree.Handle, v any) error
	scan   func(q *tree.Query) []tree.Handle
}

// Register installs vt for T, replacing any earlier registration.
func Register[T any](c *Codec, vt Vtable[T]) {
	if vt.Encode == nil || vt.Decode == nil {
		panic(fmt.Sprintf("codec: vtable for %s needs both Encode and Decode", reflect.TypeFor[T]()))
	}
	b := &binding{
		ty:    config.TypeOf[T](),
		value: config.ValueKind[T](),
		kinds: vt.Kinds,
		encode: func(q *tree.Query, h tree.Handle) (any, error) {
			return vt.Encode(q, h, tree.MustGet[config.ScalarValue[T]](q, h).Value)
		},
		decode: func(q *tree.Query, h tree.Handle, raw any) error {
			v, err := vt.Decode(q, h, raw)
			if err != nil {
				return err
			}
			tree.MustPtr[config.ScalarValue[T]](q, h).Value = v
			return nil
		},
		scan: func(q *tree.Query) []tree.Handle {
			var hs []tree.Handle
			for h := range tree.Each[config.ScalarValue[T]](q) {
				hs = append(hs, h)
			}
			return hs
		},
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vtables[reflect.TypeFor[T]()] = b
}

func registerDefaults(c *Codec) {
	registerSigned[int](c)
	registerSigned[int8](c)
	registerSigned[int16](c)
	registerSigned[int32](c)
	registerSigned[int64](c)
	registerUnsigned[uint](c)
	registerUnsigned[uint8](c)
	registerUnsigned[uint16](c)
	registerUnsigned[uint32](c)
	registerUnsigned[uint64](c)

	Register(c, Vtable[float32]{
		Encode: func(_ *tree.Query, _ tree.Handle, v float32) (any, error) { return v, nil },
		Decode: func(_ *tree.Query, _ tree.Handle, raw any) (float32, error) {
			f, err := toFloat(raw)
			return float32(f), err
		},
	})
	Register(c, Vtable[float64]{
		Encode: func(_ *tree.Query, _ tree.Handle, v float64) (any, error) { return v, nil },
		Decode: func(_ *tree.Query, _ tree.Handle, raw any) (float64, error) { return toFloat(raw) },
	})
	Register(c, Vtable[string]{
		Encode: func(_ *tree.Query, _ tree.Handle, v string) (any, error) { return v, nil },
		Decode: func(_ *tree.Query, _ tree.Handle, raw any) (string, error) {
			s, ok := raw.(string)
			if !ok {
				return "", typeError("string", raw)
			}
			return s, nil
		},
	})
	Register(c, Vtable[bool]{
		Encode: func(_ *tree.Query, _ tree.Handle, v bool) (any, error) { return v, nil },
		Decode: func(_ *tree.Query, _ tree.Handle, raw any) (bool, error) {
			b, ok := raw.(bool)
			if !ok {
				return false, typeError("bool", raw)
			}
			return b, nil
		},
	})
	Register(c, Vtable[time.Duration]{
		Encode: func(_ *tree.Query, _ tree.Handle, v time.Duration) (any, error) { return v.String(), nil },
		Decode: func(_ *tree.Query, _ tree.Handle, raw any) (time.Duration, error) {
			switch v := raw.(type) {
			case string:
				d, err := time.ParseDuration(v)
				if err != nil {
					return 0, fmt.Errorf("%w: %v", ErrType, err)
				}
				return d, nil
			case int64:
				return time.Duration(v), nil
			}
			return 0, typeError("duration", raw)
		},
	})
	Register(c, Vtable[colorful.Color]{
		Encode: func(_ *tree.Query, _ tree.Handle, v colorful.Color) (any, error) { return v.Hex(), nil },
		Decode: func(_ *tree.Query, _ tree.Handle, raw any) (colorful.Color, error) {
			s, ok := raw.(string)
			if !ok {
				return colorful.Color{}, typeError("colour", raw)
			}
			col, err := colorful.Hex(s)
			if err != nil {
				return colorful.Color{}, fmt.Errorf("%w: %v", ErrType, err)
			}
			return col, nil
		},
	})
	Register(c, Vtable[config.Discriminant]{
		Encode: func(q *tree.Query, h tree.Handle, v config.Discriminant) (any, error) {
			meta := tree.MustGet[config.DiscriminantMeta](q, h)
			return meta.Name(v.Index), nil
		},
		Decode: func(q *tree.Query, h tree.Handle, raw any) (config.Discriminant, error) {
			name, ok := raw.(string)
			if !ok {
				return config.Discriminant{}, typeError("variant name", raw)
			}
			meta := tree.MustGet[config.DiscriminantMeta](q, h)
			i, ok := meta.Index(name)
			if !ok {
				return config.Discriminant{}, fmt.Errorf("%q: %w", name, config.ErrUnknownVariant)
			}
			return config.Discriminant{Index: i}, nil
		},
		Kinds: []tree.Kind{tree.KindOf[config.DiscriminantMeta]()},
	})
}

type signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func registerSigned[T signed](c *Codec) {
	Register(c, Vtable[T]{
		Encode: func(_ *tree.Query, _ tree.Handle, v T) (any, error) { return int64(v), nil },
		Decode: func(_ *tree.Query, _ tree.Handle, raw any) (T, error) {
			var n int64
			switch v := raw.(type) {
			case int64:
				n = v
			case uint64:
				if v > math.MaxInt64 {
					return 0, fmt.Errorf("%w: %d", ErrRange, v)
				}
				n = int64(v)
			default:
				return 0, typeError("integer", raw)
			}
			if int64(T(n)) != n {
				return 0, fmt.Errorf("%w: %d does not fit %s", ErrRange, n, reflect.TypeFor[T]())
			}
			return T(n), nil
		},
	})
}

func registerUnsigned[T unsigned](c *Codec) {
	Register(c, Vtable[T]{
		Encode: func(_ *tree.Query, _ tree.Handle, v T) (any, error) { return uint64(v), nil },
		Decode: func(_ *tree.Query, _ tree.Handle, raw any) (T, error) {
			var n uint64
			switch v := raw.(type) {
			case uint64:
				n = v
			case int64:
				if v < 0 {
					return 0, fmt.Errorf("%w: %d", ErrRange, v)
				}
				n = uint64(v)
			default:
				return 0, typeError("unsigned integer", raw)
			}
			if uint64(T(n)) != n {
				return 0, fmt.Errorf("%w: %d does not fit %s", ErrRange, n, reflect.TypeFor[T]())
			}
			return T(n), nil
		},
	})
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	}
	return 0, typeError("number", raw)
}

func typeError(want string, got any) error {
	if got == nil {
		return fmt.Errorf("%w: want %s, got null", ErrType, want)
	}
	return fmt.Errorf("%w: want %s, got %T", ErrType, want, got)
}
