package config

import (
	"fmt"
	"slices"

	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// DiscriminantKey is the member key of an enum's discriminant node.
const DiscriminantKey = "discrim"

// Discriminant is the value of an enum's discriminant node: the index of
// the active variant.
type Discriminant struct {
	Index int
}

// DiscriminantMeta lists the variant names of the enum a discriminant
// belongs to.
type DiscriminantMeta struct {
	Variants []string
	Default  int
}

// Name returns the name of the variant at index i.
func (m DiscriminantMeta) Name(i int) string {
	if i < 0 || i >= len(m.Variants) {
		panic(fmt.Sprintf("config: variant index %d out of range", i))
	}
	return m.Variants[i]
}

// Index returns the index of the variant called name.
func (m DiscriminantMeta) Index(name string) (int, bool) {
	i := slices.Index(m.Variants, name)
	return i, i >= 0
}

// VariantDef is one case of an enum.
type VariantDef struct {
	Name    string
	Members []MemberDef
}

// Variant declares an enum case. Unit variants have no members; tuple
// variants use "0", "1", ... as member keys.
func Variant(name string, members ...MemberDef) VariantDef {
	if name == "" {
		panic("config: variant name must be nonempty")
	}
	checkMembers(name, members)
	return VariantDef{Name: name, Members: members}
}

// EnumField binds a tagged union. Every variant is spawned; only the active
// one is relevant.
type EnumField struct {
	name     string
	variants []VariantDef
	meta     DiscriminantMeta
	discrim  *Scalar[Discriminant, DiscriminantMeta]
}

// Enum declares a tagged union whose default variant is def.
func Enum(name, def string, variants ...VariantDef) *EnumField {
	if len(variants) == 0 {
		panic(fmt.Sprintf("config: enum %s has no variants", name))
	}
	meta := DiscriminantMeta{}
	for _, v := range variants {
		if slices.Contains(meta.Variants, v.Name) {
			panic(fmt.Sprintf("config: enum %s declares variant %s twice", name, v.Name))
		}
		meta.Variants = append(meta.Variants, v.Name)
	}
	idx, ok := meta.Index(def)
	if !ok {
		panic(fmt.Sprintf("config: enum %s has no variant %s", name, def))
	}
	meta.Default = idx
	return &EnumField{
		name:     name,
		variants: variants,
		meta:     meta,
		discrim:  NewScalar(Discriminant{Index: idx}, meta, ""),
	}
}

// TypeName returns the schema name of the enum.
func (e *EnumField) TypeName() string { return e.name }

// Variants returns the variant names in declaration order.
func (e *EnumField) Variants() []string { return slices.Clone(e.meta.Variants) }

// EnumHandle addresses a spawned enum.
type EnumHandle struct {
	node     tree.Handle
	discrim  tree.Handle
	variants [][]SpawnHandle
}

// Node implements SpawnHandle.
func (h EnumHandle) Node() tree.Handle { return h.node }

// Discriminant returns the discriminant node.
func (h EnumHandle) Discriminant() tree.Handle { return h.discrim }

// VariantKey returns the member key of field key inside variant.
func VariantKey(variant, key string) string {
	return variant + ":" + key
}

// ActiveVariant returns a relevance predicate satisfied while the
// discriminant selects index i.
func ActiveVariant(i int) func(tree.Entity) bool {
	return func(dep tree.Entity) bool {
		d, ok := tree.Get[ScalarValue[Discriminant]](dep.Query, dep.Handle)
		return ok && d.Value.Index == i
	}
}

// Spawn creates the enum node, its discriminant and every variant member.
func (e *EnumField) Spawn(sp *Spawner, ctx SpawnContext) SpawnHandle {
	h := sp.Node(ctx)
	out := EnumHandle{node: h, variants: make([][]SpawnHandle, len(e.variants))}
	out.discrim = e.discrim.Spawn(sp, ctx.Child(h, DiscriminantKey)).Node()
	for i, v := range e.variants {
		out.variants[i] = make([]SpawnHandle, len(v.Members))
		for j, m := range v.Members {
			c := ctx.Child(h, VariantKey(v.Name, m.Key))
			c.Relevance = &tree.Relevance{Dependency: out.discrim, Predicate: ActiveVariant(i)}
			out.variants[i][j] = m.Field.Spawn(sp, c)
		}
	}
	return out
}

func (e *EnumField) active(q *tree.Query, h EnumHandle) int {
	idx := tree.MustGet[ScalarValue[Discriminant]](q, h.discrim).Value.Index
	if idx < 0 || idx >= len(e.variants) {
		panic(fmt.Sprintf("config: enum %s discriminant %d out of range", e.name, idx))
	}
	return idx
}

// VariantValue is the read view of an enum.
type VariantValue struct {
	Name   string
	Index  int
	Fields Record
}

// Map renders the value with its variant name under "discrim".
func (v VariantValue) Map() map[string]any {
	out := v.Fields.Map()
	out[DiscriminantKey] = v.Name
	return out
}

// Read returns a VariantValue built from the active variant.
func (e *EnumField) Read(q *tree.Query, h SpawnHandle) any {
	eh := h.(EnumHandle)
	i := e.active(q, eh)
	return VariantValue{
		Name:   e.variants[i].Name,
		Index:  i,
		Fields: readMembers(q, e.variants[i].Members, eh.variants[i]),
	}
}

// Changed returns the active variant index tagged with its members' witnesses.
func (e *EnumField) Changed(q *tree.Query, h SpawnHandle) Changed {
	eh := h.(EnumHandle)
	i := e.active(q, eh)
	return Changed{tag: i + 1, kids: changedMembers(q, e.variants[i].Members, eh.variants[i])}
}

// ReadKinds lists the kinds Read touches.
func (e *EnumField) ReadKinds() []tree.Kind {
	kinds := [][]tree.Kind{e.discrim.ReadKinds()}
	for _, v := range e.variants {
		for _, m := range v.Members {
			kinds = append(kinds, m.Field.ReadKinds())
		}
	}
	return uniqueKinds(kinds...)
}

// ChangedKinds lists the kinds Changed touches.
func (e *EnumField) ChangedKinds() []tree.Kind {
	kinds := [][]tree.Kind{e.discrim.ReadKinds()}
	for _, v := range e.variants {
		for _, m := range v.Members {
			kinds = append(kinds, m.Field.ChangedKinds())
		}
	}
	return uniqueKinds(kinds...)
}

// Select makes the variant called name active. The query must allow
// ValueAccess[Discriminant].
func (e *EnumField) Select(q *tree.Query, h SpawnHandle, name string) error {
	i, ok := e.meta.Index(name)
	if !ok {
		return fmt.Errorf("selecting %q in %s: %w", name, e.name, ErrUnknownVariant)
	}
	SetValue(q, h.(EnumHandle).discrim, Discriminant{Index: i})
	return nil
}
