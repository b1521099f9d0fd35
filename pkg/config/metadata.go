package config

import (
	"fmt"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// Numeric is the set of types Number accepts.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NumberMeta describes a numeric scalar.
type NumberMeta[T Numeric] struct {
	Default T
	// Min and Max bound edits when set.
	Min, Max *T
	// Precision is the step used by editors. Zero or nil means 1.
	Precision *T
	// Slider asks editors for a slider instead of a text box.
	Slider bool
	// Constraint is an optional boolean expression over value.
	Constraint string
}

// Clamp limits v to [Min, Max].
func (m NumberMeta[T]) Clamp(v T) T {
	if m.Min != nil && v < *m.Min {
		v = *m.Min
	}
	if m.Max != nil && v > *m.Max {
		v = *m.Max
	}
	return v
}

// Step returns the increment editors use for stepping.
func (m NumberMeta[T]) Step() T {
	if m.Precision != nil && *m.Precision > 0 {
		return *m.Precision
	}
	return 1
}

// Limit returns a pointer to v, for filling Min, Max and Precision.
func Limit[T Numeric](v T) *T { return &v }

// StringMeta describes a string scalar.
type StringMeta struct {
	Default string
	// MaxLength limits the number of characters when positive.
	MaxLength int
	Multiline bool
	Constraint string
}

// BoolMeta describes a boolean scalar.
type BoolMeta struct {
	Default bool
}

// ColorMeta describes a colour scalar.
type ColorMeta struct {
	Default colorful.Color
	// Alpha asks editors to show the colour blended over the background.
	Alpha bool
}

// BareMeta carries only a default, for types without richer metadata.
type BareMeta[T any] struct {
	Default T
}

// Number declares a numeric scalar.
func Number[T Numeric](meta NumberMeta[T]) *Scalar[T, NumberMeta[T]] {
	if meta.Min != nil && meta.Max != nil && *meta.Min > *meta.Max {
		panic(fmt.Sprintf("config: number min %v exceeds max %v", *meta.Min, *meta.Max))
	}
	if meta.Clamp(meta.Default) != meta.Default {
		panic(fmt.Sprintf("config: number default %v is out of range", meta.Default))
	}
	return NewScalar(meta.Default, meta, meta.Constraint)
}

// Duration declares a time.Duration scalar.
func Duration(meta NumberMeta[time.Duration]) *Scalar[time.Duration, NumberMeta[time.Duration]] {
	return Number(meta)
}

// String declares a string scalar.
func String(meta StringMeta) *Scalar[string, StringMeta] {
	return NewScalar(meta.Default, meta, meta.Constraint)
}

// Bool declares a boolean scalar.
func Bool(meta BoolMeta) *Scalar[bool, BoolMeta] {
	return NewScalar(meta.Default, meta, "")
}

// Color declares a colour scalar.
func Color(meta ColorMeta) *Scalar[colorful.Color, ColorMeta] {
	return NewScalar(meta.Default, meta, "")
}

// Bare declares a scalar of a foreign type. Every installed manager must
// support T.
func Bare[T any](def T) *Scalar[T, BareMeta[T]] {
	return NewScalar(def, BareMeta[T]{Default: def}, "")
}
