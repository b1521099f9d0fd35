package config

import (
	"fmt"
	"slices"

	"github.com/go-viper/mapstructure/v2"

	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// MemberDef is one keyed member of a struct or enum variant.
type MemberDef struct {
	Key   string
	Field Field
}

// Member declares a member keyed key.
func Member(key string, f Field) MemberDef {
	if key == "" {
		panic("config: member key must be nonempty")
	}
	if f == nil {
		panic(fmt.Sprintf("config: member %q has no field", key))
	}
	return MemberDef{Key: key, Field: f}
}

func checkMembers(owner string, members []MemberDef) {
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if seen[m.Key] {
			panic(fmt.Sprintf("config: %s declares member %q twice", owner, m.Key))
		}
		seen[m.Key] = true
	}
}

// StructField binds a fixed, ordered list of members.
type StructField struct {
	name    string
	members []MemberDef
}

// Struct declares a composite with the given members in order.
func Struct(name string, members ...MemberDef) *StructField {
	checkMembers(name, members)
	return &StructField{name: name, members: members}
}

// TypeName returns the schema name of the struct.
func (s *StructField) TypeName() string { return s.name }

// Members returns the declared members.
func (s *StructField) Members() []MemberDef { return slices.Clone(s.members) }

// StructHandle addresses a spawned struct.
type StructHandle struct {
	node    tree.Handle
	members []SpawnHandle
}

// Node implements SpawnHandle.
func (h StructHandle) Node() tree.Handle { return h.node }

// Member returns the spawn handle of the i-th member.
func (h StructHandle) Member(i int) SpawnHandle { return h.members[i] }

// Spawn creates the struct node, then each member in declaration order.
func (s *StructField) Spawn(sp *Spawner, ctx SpawnContext) SpawnHandle {
	h := sp.Node(ctx)
	out := StructHandle{node: h, members: make([]SpawnHandle, len(s.members))}
	for i, m := range s.members {
		out.members[i] = m.Field.Spawn(sp, ctx.Child(h, m.Key))
	}
	return out
}

// Read returns a Record of the member values.
func (s *StructField) Read(q *tree.Query, h SpawnHandle) any {
	return readMembers(q, s.members, h.(StructHandle).members)
}

// Changed returns the member-wise witness tuple.
func (s *StructField) Changed(q *tree.Query, h SpawnHandle) Changed {
	return Changed{kids: changedMembers(q, s.members, h.(StructHandle).members)}
}

// ReadKinds lists the kinds Read touches.
func (s *StructField) ReadKinds() []tree.Kind {
	var kinds [][]tree.Kind
	for _, m := range s.members {
		kinds = append(kinds, m.Field.ReadKinds())
	}
	return uniqueKinds(kinds...)
}

// ChangedKinds lists the kinds Changed touches.
func (s *StructField) ChangedKinds() []tree.Kind {
	var kinds [][]tree.Kind
	for _, m := range s.members {
		kinds = append(kinds, m.Field.ChangedKinds())
	}
	return uniqueKinds(kinds...)
}

func readMembers(q *tree.Query, members []MemberDef, handles []SpawnHandle) Record {
	r := Record{keys: make([]string, len(members)), values: make(map[string]any, len(members))}
	for i, m := range members {
		r.keys[i] = m.Key
		r.values[m.Key] = m.Field.Read(q, handles[i])
	}
	return r
}

func changedMembers(q *tree.Query, members []MemberDef, handles []SpawnHandle) []Changed {
	out := make([]Changed, len(members))
	for i, m := range members {
		out[i] = m.Field.Changed(q, handles[i])
	}
	return out
}

// Record is the read view of a struct or of an enum variant's members.
type Record struct {
	keys   []string
	values map[string]any
}

// Keys returns the member keys in declaration order.
func (r Record) Keys() []string { return slices.Clone(r.keys) }

// Len returns the number of members.
func (r Record) Len() int { return len(r.keys) }

// Get returns the value of the member keyed key.
func (r Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Map converts the record into nested maps. Enum values become maps with
// the variant name under "discrim".
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		out[k] = plain(r.values[k])
	}
	return out
}

func plain(v any) any {
	switch v := v.(type) {
	case Record:
		return v.Map()
	case VariantValue:
		return v.Map()
	default:
		return v
	}
}

// Decode copies the record into out, which must be a pointer to a struct or
// map. Struct fields are matched by their `config` tag, falling back to the
// field name.
func (r Record) Decode(out any) error {
	return decode(r.Map(), out)
}

func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "config",
		Result:           out,
		WeaklyTypedInput: false,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	return nil
}

// Get returns the member keyed key as a T.
func Get[T any](r Record, key string) (T, bool) {
	v, ok := r.values[key]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
