package config

import (
	"fmt"

	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// ScalarValue is the mutable payload of a scalar node.
type ScalarValue[T any] struct {
	Value T
}

// ScalarField is attached to every scalar node. It lets type-agnostic
// consumers find scalars and read their values.
type ScalarField struct {
	Type       ScalarType
	Constraint string

	value func(q *tree.Query, h tree.Handle) any
}

// Value returns the current value of the scalar at h. The query must be
// able to read the node's ScalarValue kind.
func (f ScalarField) Value(q *tree.Query, h tree.Handle) any {
	return f.value(q, h)
}

func readValue[T any](q *tree.Query, h tree.Handle) any {
	return tree.MustGet[ScalarValue[T]](q, h).Value
}

// ValueKind returns the record kind holding values of type T.
func ValueKind[T any]() tree.Kind {
	return tree.KindOf[ScalarValue[T]]()
}

// Scalar binds one Go type to exactly one node. M is the metadata record
// stored beside the value.
type Scalar[T, M any] struct {
	meta       M
	def        T
	constraint string
}

// NewScalar builds a scalar binding from a default value and its metadata.
func NewScalar[T, M any](def T, meta M, constraint string) *Scalar[T, M] {
	return &Scalar[T, M]{meta: meta, def: def, constraint: constraint}
}

// Meta returns the metadata the scalar was declared with.
func (s *Scalar[T, M]) Meta() M { return s.meta }

// Default returns the value a freshly spawned node holds.
func (s *Scalar[T, M]) Default() T { return s.def }

// Spawn creates one node holding the default value and the metadata.
func (s *Scalar[T, M]) Spawn(sp *Spawner, ctx SpawnContext) SpawnHandle {
	h := sp.Node(ctx)
	q := sp.Query()
	tree.Insert(q, h, ScalarValue[T]{Value: s.def})
	tree.Insert(q, h, s.meta)
	tree.Insert(q, h, ScalarField{
		Type:       TypeOf[T](),
		Constraint: s.constraint,
		value:      readValue[T],
	})
	sp.Attach(h, TypeOf[T]())
	return ScalarHandle{h}
}

// Read returns a copy of the stored value.
func (s *Scalar[T, M]) Read(q *tree.Query, h SpawnHandle) any {
	return s.Get(q, h)
}

// Get is the typed form of Read.
func (s *Scalar[T, M]) Get(q *tree.Query, h SpawnHandle) T {
	return tree.MustGet[ScalarValue[T]](q, h.Node()).Value
}

// Changed returns the node generation.
func (s *Scalar[T, M]) Changed(q *tree.Query, h SpawnHandle) Changed {
	return GenerationWitness(tree.MustGet[tree.Node](q, h.Node()).Generation)
}

// ReadKinds lists the value kind.
func (s *Scalar[T, M]) ReadKinds() []tree.Kind { return []tree.Kind{ValueKind[T]()} }

// ChangedKinds lists the node kind.
func (s *Scalar[T, M]) ChangedKinds() []tree.Kind { return []tree.Kind{tree.KindNode} }

// ValueAccess declares the access needed to mutate scalars of type T with
// SetValue.
func ValueAccess[T any]() tree.Access {
	return tree.Writes(ValueKind[T](), tree.KindNode)
}

// SetValue stores v in the scalar at h and bumps its generation.
func SetValue[T any](q *tree.Query, h tree.Handle, v T) {
	p, ok := tree.Ptr[ScalarValue[T]](q, h)
	if !ok {
		panic(fmt.Sprintf("config: node %d is not a %s scalar", h, TypeOf[T]()))
	}
	p.Value = v
	BumpGeneration(q, h)
}

// BumpGeneration marks the node at h as changed.
func BumpGeneration(q *tree.Query, h tree.Handle) {
	n := tree.MustPtr[tree.Node](q, h)
	n.Generation = n.Generation.Next()
}
