// Package codec persists a configuration tree as a flat map from dotted
// paths to scalar values.
//
// A Codec is a config.Manager. Scalar types are registered with a Vtable;
// spawning a node of a registered type makes the type active, and Serialize
// only scans active types. Enum fields appear as "{path}.{Variant}:{field}"
// plus "{path}.discrim" holding the variant name. Relevance is ignored:
// inactive variants are saved and loaded like everything else.
package codec

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/mesh-intelligence/cfgtree/pkg/config"
)

// Codec is the persistence manager.
type Codec struct {
	format Format
	logger *slog.Logger
	match  string
	bump   bool

	mu      sync.RWMutex
	vtables map[reflect.Type]*binding
	active  map[reflect.Type]bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) { c.logger = l }
}

// WithMatch restricts Serialize and Deserialize to scalars whose path,
// joined with "/", matches the doublestar pattern.
func WithMatch(pattern string) Option {
	return func(c *Codec) { c.match = pattern }
}

// WithGenerationBump makes Deserialize bump the generation of every node it
// writes, so change witnesses observe reloads.
func WithGenerationBump() Option {
	return func(c *Codec) { c.bump = true }
}

// New creates a codec for format with the default vtables registered.
func New(format Format, opts ...Option) *Codec {
	c := &Codec{
		format:  format,
		vtables: make(map[reflect.Type]*binding),
		active:  make(map[reflect.Type]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "codec", "format", format.Name())
	registerDefaults(c)
	return c
}

// JSON creates a codec producing compact JSON.
func JSON(opts ...Option) *Codec { return New(JSONFormat{}, opts...) }

// Pretty creates a codec producing indented JSON.
func Pretty(opts ...Option) *Codec { return New(PrettyFormat{}, opts...) }

// YAML creates a codec producing a YAML mapping.
func YAML(opts ...Option) *Codec { return New(YAMLFormat{}, opts...) }

// TOML returns a codec writing TOML.
func TOML(opts ...Option) *Codec { return New(TOMLFormat{}, opts...) }

// Format returns the wire format.
func (c *Codec) Format() Format { return c.format }

// Signature identifies the codec in manager-set checks.
func (c *Codec) Signature() string {
	return fmt.Sprintf("codec.Codec[%s]", c.format.Name())
}

// Supports reports whether a vtable is registered for ty.
func (c *Codec) Supports(ty config.ScalarType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.vtables[ty.Type()]
	return ok
}

// NewEntity activates ty. The codec attaches no records; it finds its
// nodes by scanning value kinds.
func (c *Codec) NewEntity(ty config.ScalarType) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active[ty.Type()] {
		c.active[ty.Type()] = true
		c.logger.Debug("activated scalar type", "type", ty.String())
	}
	return nil
}

// activeBindings returns the bindings of every spawned type.
func (c *Codec) activeBindings() []*binding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*binding, 0, len(c.active))
	for t := range c.active {
		out = append(out, c.vtables[t])
	}
	return out
}
