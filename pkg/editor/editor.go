// Package editor draws a configuration tree as an interactive form.
//
// An Editor is a config.Manager that attaches a DrawHook and a Scratch
// record to every scalar node. Show walks every root, draws composites as
// collapsible groups labelled by the last path segment and scalars through
// their hook. Nodes whose relevance link is false are skipped together with
// their subtree. A confirmed edit writes the value and bumps the node's
// generation.
package editor

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mesh-intelligence/cfgtree/internal/constraint"
	"github.com/mesh-intelligence/cfgtree/pkg/config"
	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// DrawHook draws one scalar node. It reports whether the value changed.
type DrawHook struct {
	Draw func(ui UI, q *tree.Query, h tree.Handle) bool
}

// Scratch holds per-node editing state between frames.
type Scratch struct {
	Text    string
	Editing bool
	// Invalid describes why the current text was rejected.
	Invalid string
}

// Context is handed to widgets.
type Context struct {
	Query  *tree.Query
	Handle tree.Handle
	Label  string
}

// Scratch returns the scratch record of the node being drawn.
func (c Context) Scratch() *Scratch {
	return tree.MustPtr[Scratch](c.Query, c.Handle)
}

// Widget edits a value of type T in place and reports a confirmed change.
type Widget[T any] func(ctx Context, ui UI, v *T) bool

// Editor is the editor manager.
type Editor struct {
	logger *slog.Logger

	mu    sync.RWMutex
	hooks map[reflect.Type]DrawHook

	// stale is set when a hook changed a Scratch after drawing from it.
	stale atomic.Bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// New creates an editor with the default widgets registered.
func New(opts ...Option) *Editor {
	e := &Editor{hooks: make(map[reflect.Type]DrawHook)}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "editor")
	registerDefaults(e)
	return e
}

// Register installs w for scalars of type T.
func Register[T any](e *Editor, w Widget[T]) {
	edit := func(ui UI, q *tree.Query, h tree.Handle) bool {
		p := tree.MustPtr[config.ScalarValue[T]](q, h)
		ctx := Context{Query: q, Handle: h, Label: tree.MustGet[tree.Node](q, h).Label()}
		v := p.Value
		if !w(ctx, ui, &v) {
			return false
		}
		if sf, ok := tree.Get[config.ScalarField](q, h); ok && sf.Constraint != "" {
			ok, err := constraint.Check(sf.Constraint, v)
			if err != nil || !ok {
				ctx.Scratch().Invalid = "must satisfy " + sf.Constraint
				return false
			}
		}
		p.Value = v
		config.BumpGeneration(q, h)
		return true
	}
	hook := DrawHook{Draw: func(ui UI, q *tree.Query, h tree.Handle) bool {
		before, _ := tree.Get[Scratch](q, h)
		changed := edit(ui, q, h)
		if after, _ := tree.Get[Scratch](q, h); after != before {
			e.stale.Store(true)
		}
		return changed
	}}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks[reflect.TypeFor[T]()] = hook
}

// Supports reports whether a widget is registered for ty.
func (e *Editor) Supports(ty config.ScalarType) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.hooks[ty.Type()]
	return ok
}

// NewEntity returns the draw hook and an empty Scratch for a node of ty.
func (e *Editor) NewEntity(ty config.ScalarType) []any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	hook, ok := e.hooks[ty.Type()]
	if !ok {
		panic(fmt.Sprintf("editor: no widget for %s", ty))
	}
	return []any{hook, Scratch{}}
}

// Show draws every root of the store once. It returns true when any value
// changed. Widgets react to input while they draw, so editing state such as
// an invalid marker can change after it was drawn; Stale reports that and
// the caller should draw another frame.
func (e *Editor) Show(ui UI, s *tree.Store) bool {
	q := s.Query(tree.Exclusive)
	defer q.Release()
	e.stale.Store(false)
	changed := false
	for _, h := range tree.Roots(q) {
		if e.draw(ui, q, h) {
			changed = true
		}
	}
	return changed
}

// Stale reports whether the last Show left the drawn frame out of date.
func (e *Editor) Stale() bool { return e.stale.Load() }

func (e *Editor) draw(ui UI, q *tree.Query, h tree.Handle) bool {
	if !tree.IsRelevant(q, h) {
		return false
	}
	if hook, ok := tree.Get[DrawHook](q, h); ok {
		if !hook.Draw(ui, q, h) {
			return false
		}
		e.logger.Debug("edited", "path", strings.Join(tree.MustGet[tree.Node](q, h).Path, "."))
		return true
	}
	changed := false
	ui.Group(tree.MustGet[tree.Node](q, h).Label(), func() {
		children, _ := tree.Get[tree.Children](q, h)
		for _, c := range children.Handles {
			if e.draw(ui, q, c) {
				changed = true
			}
		}
	})
	return changed
}
