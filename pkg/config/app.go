package config

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// App registers configuration roots in one store.
//
// The registrations themselves live in the store, so Apps sharing a store
// through WithStore share one manager set and one set of root keys and
// types.
type App struct {
	store  *tree.Store
	logger *slog.Logger

	mu    sync.Mutex
	roots []*Root
	byKey map[string]*Root
}

// registration is attached to every root node.
type registration struct {
	Key       string
	TypeName  string
	Signature string
	Manager   Manager
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger used for registration events.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithStore binds the App to an existing store.
func WithStore(s *tree.Store) Option {
	return func(a *App) { a.store = s }
}

// NewApp creates an App with a fresh store unless WithStore is given.
func NewApp(opts ...Option) *App {
	a := &App{byKey: make(map[string]*Root)}
	for _, opt := range opts {
		opt(a)
	}
	if a.store == nil {
		a.store = tree.NewStore()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.logger = a.logger.With("component", "config", "store", a.store.ID().String())
	return a
}

// Store returns the backing store.
func (a *App) Store() *tree.Store { return a.store }

// Manager returns the manager set installed in the store by the first Init,
// or nil.
func (a *App) Manager() Manager {
	q := a.store.Query(tree.Reads(tree.KindOf[registration]()))
	defer q.Release()
	for _, reg := range tree.Each[registration](q) {
		return reg.Manager
	}
	return nil
}

// Roots returns the registered roots in registration order.
func (a *App) Roots() []*Root {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*Root(nil), a.roots...)
}

// Root returns the root registered under key.
func (a *App) Root(key string) (*Root, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.byKey[key]
	if !ok {
		return nil, fmt.Errorf("looking up %q: %w", key, ErrUnknownRoot)
	}
	return r, nil
}

// Init spawns field under key and registers it as a root. All roots of a
// store share one manager set; the first call installs it and later calls
// spawn with the installed set. Init panics when the manager set differs
// from the installed one, when key is already used or when a root of the
// same type is already registered, including by another App on the store.
func (a *App) Init(key string, field Field, m Manager) *Root {
	if m == nil {
		m = Chain{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	q := a.store.Query(tree.Exclusive)
	defer q.Release()

	sig := Signature(m)
	typeName := TypeName(field)
	installed := m
	first := true
	for _, reg := range tree.Each[registration](q) {
		if first {
			if sig != reg.Signature {
				panic(fmt.Sprintf("config: root %q uses manager %s but the store already uses %s; multiple manager sets are not supported", key, sig, reg.Signature))
			}
			installed, first = reg.Manager, false
		}
		if reg.Key == key {
			panic(fmt.Sprintf("config: root key %q is already in use", key))
		}
		if reg.TypeName == typeName {
			panic(fmt.Sprintf("config: root type %s is already registered under %q", typeName, reg.Key))
		}
	}
	if _, ok := q.Lookup([]string{key}); ok {
		panic(fmt.Sprintf("config: root key %q is already in use", key))
	}

	sp := NewSpawner(q, installed, a.logger)
	h := field.Spawn(sp, SpawnContext{Path: []string{key}})
	tree.Insert(q, h.Node(), tree.RootMarker{Key: key})
	tree.Insert(q, h.Node(), registration{Key: key, TypeName: typeName, Signature: sig, Manager: installed})

	r := &Root{app: a, key: key, field: field, handle: h}
	a.roots = append(a.roots, r)
	a.byKey[key] = r
	a.logger.Debug("registered root", "key", key, "type", typeName, "scalars", sp.scalars, "nodes", q.Len())
	return r
}

// Root is a registered top-level configuration tree.
type Root struct {
	app    *App
	key    string
	field  Field
	handle SpawnHandle
}

// Key returns the registration key.
func (r *Root) Key() string { return r.key }

// Field returns the schema the root was spawned from.
func (r *Root) Field() Field { return r.field }

// Handle returns the spawn handle of the root.
func (r *Root) Handle() SpawnHandle { return r.handle }

// Node returns the root node.
func (r *Root) Node() tree.Handle { return r.handle.Node() }

// ReadAccess is the minimal access Read needs.
func (r *Root) ReadAccess() tree.Access { return tree.Reads(r.field.ReadKinds()...) }

// ChangedAccess is the minimal access Changed needs.
func (r *Root) ChangedAccess() tree.Access { return tree.Reads(r.field.ChangedKinds()...) }

// Read returns the current value of the root.
func (r *Root) Read() any {
	q := r.app.store.Query(r.ReadAccess())
	defer q.Release()
	return r.ReadWith(q)
}

// ReadWith reads through a query the caller already holds.
func (r *Root) ReadWith(q *tree.Query) any {
	return r.field.Read(q, r.handle)
}

// Changed returns the current change witness of the root.
func (r *Root) Changed() Changed {
	q := r.app.store.Query(r.ChangedAccess())
	defer q.Release()
	return r.ChangedWith(q)
}

// ChangedWith computes the witness through a query the caller already holds.
func (r *Root) ChangedWith(q *tree.Query) Changed {
	return r.field.Changed(q, r.handle)
}

// ReadAs decodes the current value of a struct or enum root into a T.
func ReadAs[T any](r *Root) (T, error) {
	var out T
	var m map[string]any
	switch v := r.Read().(type) {
	case Record:
		m = v.Map()
	case VariantValue:
		m = v.Map()
	default:
		return out, fmt.Errorf("reading %q: root is a scalar of type %T", r.key, v)
	}
	if err := decode(m, &out); err != nil {
		return out, fmt.Errorf("reading %q: %w", r.key, err)
	}
	return out, nil
}

// Tracker reports whether a root changed since it was last polled.
type Tracker struct {
	root *Root
	last Changed
}

// Tracker starts tracking from the current state.
func (r *Root) Tracker() *Tracker {
	return &Tracker{root: r, last: r.Changed()}
}

// Poll reports whether the root changed since the previous poll.
func (t *Tracker) Poll() bool {
	now := t.root.Changed()
	if now.Equal(t.last) {
		return false
	}
	t.last = now
	return true
}
