package config

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// Field is implemented by every type that can appear in a schema.
type Field interface {
	// Spawn creates the nodes for this field and returns the handle its
	// parent keeps to address the subtree later.
	Spawn(sp *Spawner, ctx SpawnContext) SpawnHandle
	// Read projects the current value of the subtree. Scalars return their
	// Go value, structs a Record and enums a VariantValue.
	Read(q *tree.Query, h SpawnHandle) any
	// Changed returns a witness that differs from any witness taken before
	// a scalar in the subtree was mutated.
	Changed(q *tree.Query, h SpawnHandle) Changed
	// ReadKinds lists the record kinds Read needs.
	ReadKinds() []tree.Kind
	// ChangedKinds lists the record kinds Changed needs.
	ChangedKinds() []tree.Kind
}

// SpawnHandle addresses a spawned subtree.
type SpawnHandle interface {
	// Node returns the root node of the subtree.
	Node() tree.Handle
}

// ScalarHandle is the spawn handle of a scalar field: its only node.
type ScalarHandle struct {
	tree.Handle
}

// Node implements SpawnHandle.
func (h ScalarHandle) Node() tree.Handle { return h.Handle }

// SpawnContext is passed from a parent to the fields it spawns.
type SpawnContext struct {
	// Path is the hierarchical path of the field being spawned.
	Path []string
	// Parent is the node of the enclosing composite, if any.
	Parent tree.Handle
	// Relevance, when set, is attached to the node the field creates for
	// itself. It is not passed on to descendants.
	Relevance *tree.Relevance
}

// Child returns the context of a member keyed key below parent.
func (c SpawnContext) Child(parent tree.Handle, key string) SpawnContext {
	return SpawnContext{
		Path:   append(slices.Clone(c.Path), key),
		Parent: parent,
	}
}

// Spawner carries the exclusive query and the manager through a spawn.
type Spawner struct {
	query   *tree.Query
	manager Manager
	logger  *slog.Logger
	scalars int
}

// NewSpawner wraps an exclusive query. App.Init builds one per root;
// callers assembling a store by hand can use it directly.
func NewSpawner(q *tree.Query, m Manager, logger *slog.Logger) *Spawner {
	if !q.Access().Exclusive {
		panic("config: spawning requires an exclusive query")
	}
	if m == nil {
		m = Chain{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Spawner{query: q, manager: m, logger: logger}
}

// Query returns the exclusive query used for spawning.
func (sp *Spawner) Query() *tree.Query { return sp.query }

// Node creates the node described by ctx.
func (sp *Spawner) Node(ctx SpawnContext) tree.Handle {
	return sp.query.Create(ctx.Path, ctx.Parent, ctx.Relevance)
}

// Attach invokes the manager hook for a scalar node of type ty and attaches
// the returned records to h.
func (sp *Spawner) Attach(h tree.Handle, ty ScalarType) {
	if m, ok := unsupported(sp.manager, ty); ok {
		panic(fmt.Sprintf("config: manager %s does not support scalar type %s", Signature(m), ty))
	}
	recs := sp.manager.NewEntity(ty)
	for _, rec := range recs {
		tree.InsertAny(sp.query, h, rec)
	}
	sp.scalars++
	sp.logger.Debug("spawned scalar",
		"path", strings.Join(tree.MustGet[tree.Node](sp.query, h).Path, "."),
		"type", ty.String(),
		"records", len(recs))
}

// ScalarType identifies the Go type of a scalar field.
type ScalarType struct {
	t reflect.Type
}

// TypeOf returns the scalar type of T.
func TypeOf[T any]() ScalarType {
	return ScalarType{t: reflect.TypeFor[T]()}
}

// Type returns the Go type.
func (s ScalarType) Type() reflect.Type { return s.t }

func (s ScalarType) String() string { return s.t.String() }

// TypeName returns the name a root field is registered under. Composites
// report their schema name; scalars their Go type.
func TypeName(f Field) string {
	if named, ok := f.(interface{ TypeName() string }); ok {
		return named.TypeName()
	}
	return reflect.TypeOf(f).String()
}

func uniqueKinds(kinds ...[]tree.Kind) []tree.Kind {
	var out []tree.Kind
	seen := make(map[tree.Kind]bool)
	for _, group := range kinds {
		for _, k := range group {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}
