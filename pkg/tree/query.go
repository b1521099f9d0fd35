package tree

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
)

// Access declares the record kinds a query may touch.
type Access struct {
	// Read lists kinds the query reads.
	Read []Kind
	// Write lists kinds the query reads and mutates.
	Write []Kind
	// ReadAll grants read access to every kind that exists when the query
	// is acquired.
	ReadAll bool
	// Exclusive grants full access to the whole store, including node
	// creation, and blocks every other query.
	Exclusive bool
}

// Reads declares read access to kinds.
func Reads(kinds ...Kind) Access { return Access{Read: kinds} }

// Writes declares write access to kinds.
func Writes(kinds ...Kind) Access { return Access{Write: kinds} }

// Exclusive declares exclusive access to the store.
var Exclusive = Access{Exclusive: true}

// Union combines two access declarations.
func (a Access) Union(b Access) Access {
	return Access{
		Read:      append(slices.Clone(a.Read), b.Read...),
		Write:     append(slices.Clone(a.Write), b.Write...),
		ReadAll:   a.ReadAll || b.ReadAll,
		Exclusive: a.Exclusive || b.Exclusive,
	}
}

// Conflicts reports whether two queries with these declarations would have
// to wait for each other.
func (a Access) Conflicts(b Access) bool {
	if a.Exclusive || b.Exclusive {
		return true
	}
	overlaps := func(writes []Kind, other Access) bool {
		for _, k := range writes {
			if other.ReadAll || slices.Contains(other.Read, k) || slices.Contains(other.Write, k) {
				return true
			}
		}
		return false
	}
	return overlaps(a.Write, b) || overlaps(b.Write, a)
}

// Query is a scoped view of a store. It holds the locks for the kinds it
// declared until Release is called.
type Query struct {
	store    *Store
	access   Access
	tables   map[Kind]*table
	writable map[Kind]bool
	held     []heldLock
	released bool
}

type heldLock struct {
	t     *table
	write bool
}

// Query acquires a scoped view. Kinds are locked in a fixed order so that
// concurrent queries never deadlock; read-only queries never block each
// other.
func (s *Store) Query(a Access) *Query {
	q := &Query{store: s, access: a}
	if a.Exclusive {
		s.world.Lock()
		return q
	}
	s.world.RLock()

	q.tables = make(map[Kind]*table)
	q.writable = make(map[Kind]bool)
	if a.ReadAll {
		for k, t := range s.snapshotTables() {
			q.tables[k] = t
		}
	}
	for _, k := range a.Read {
		q.tables[k] = s.tableFor(k, true)
	}
	for _, k := range a.Write {
		q.tables[k] = s.tableFor(k, true)
		q.writable[k] = true
	}

	modes := make(map[*table]bool, len(q.tables))
	for k, t := range q.tables {
		modes[t] = modes[t] || q.writable[k]
	}
	for t, write := range modes {
		q.held = append(q.held, heldLock{t: t, write: write})
	}
	slices.SortFunc(q.held, func(x, y heldLock) int { return x.t.seq - y.t.seq })
	for _, l := range q.held {
		if l.write {
			l.t.mu.Lock()
		} else {
			l.t.mu.RLock()
		}
	}
	return q
}

// Release unlocks everything the query holds. It is safe to call twice.
func (q *Query) Release() {
	if q.released {
		return
	}
	q.released = true
	if q.access.Exclusive {
		q.store.world.Unlock()
		return
	}
	for i := len(q.held) - 1; i >= 0; i-- {
		if q.held[i].write {
			q.held[i].t.mu.Unlock()
		} else {
			q.held[i].t.mu.RUnlock()
		}
	}
	q.store.world.RUnlock()
}

// Store returns the store the query reads from.
func (q *Query) Store() *Store { return q.store }

// Access returns the declaration the query was acquired with.
func (q *Query) Access() Access { return q.access }

func (q *Query) mustBeLive() {
	if q.released {
		panic("tree: query used after Release")
	}
}

// table returns the table of kind k if the query may access it.
// It returns nil when no record of that kind exists yet.
func (q *Query) table(k Kind, write, create bool) *table {
	q.mustBeLive()
	if q.access.Exclusive {
		return q.store.tableFor(k, create)
	}
	if write && !q.writable[k] {
		panic(fmt.Sprintf("tree: query does not declare write access to %s", k))
	}
	t, ok := q.tables[k]
	if !ok {
		if q.access.ReadAll {
			// Created after the query was acquired: not part of its view.
			return nil
		}
		panic(fmt.Sprintf("tree: query does not declare read access to %s", k))
	}
	return t
}

func lookup[T any](q *Query, h Handle, write bool) (*T, bool) {
	t := q.table(KindOf[T](), write, false)
	if t == nil {
		return nil, false
	}
	v, ok := t.rows[h]
	if !ok {
		return nil, false
	}
	return v.(*T), true
}

// Get returns a copy of the record of type T attached to h.
func Get[T any](q *Query, h Handle) (T, bool) {
	p, ok := lookup[T](q, h, false)
	if !ok {
		var zero T
		return zero, false
	}
	return *p, true
}

// Has reports whether h has a record of type T.
func Has[T any](q *Query, h Handle) bool {
	_, ok := lookup[T](q, h, false)
	return ok
}

// Ptr returns a pointer to the record of type T attached to h for in-place
// mutation. The query must declare write access to T.
func Ptr[T any](q *Query, h Handle) (*T, bool) {
	return lookup[T](q, h, true)
}

// MustGet is like Get but panics when the record is missing. Use it for
// records whose presence is guaranteed by construction.
func MustGet[T any](q *Query, h Handle) T {
	v, ok := Get[T](q, h)
	if !ok {
		panic(fmt.Sprintf("tree: node %d has no %s record", h, KindOf[T]()))
	}
	return v
}

// MustPtr is like Ptr but panics when the record is missing.
func MustPtr[T any](q *Query, h Handle) *T {
	p, ok := Ptr[T](q, h)
	if !ok {
		panic(fmt.Sprintf("tree: node %d has no %s record", h, KindOf[T]()))
	}
	return p
}

// Insert attaches rec to h, replacing any record of the same type.
func Insert[T any](q *Query, h Handle, rec T) {
	insertPtr(q, KindOf[T](), h, &rec)
}

// InsertAny attaches rec to h, keyed by its dynamic type. Managers use it to
// attach records whose types are only known at run time.
func InsertAny(q *Query, h Handle, rec any) {
	if rec == nil {
		panic("tree: cannot insert a nil record")
	}
	v := reflect.ValueOf(rec)
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	insertPtr(q, kindOfValue(rec), h, p.Interface())
}

func insertPtr(q *Query, k Kind, h Handle, p any) {
	if !q.Exists(h) {
		panic(fmt.Sprintf("tree: cannot attach %s to missing node %d", k, h))
	}
	q.table(k, true, true).put(h, p)
}

// Each iterates over every node carrying a record of type T, in handle
// order.
func Each[T any](q *Query) iter.Seq2[Handle, T] {
	return func(yield func(Handle, T) bool) {
		t := q.table(KindOf[T](), false, false)
		if t == nil {
			return
		}
		for _, h := range t.order {
			if !yield(h, *t.rows[h].(*T)) {
				return
			}
		}
	}
}

// Count returns the number of nodes carrying a record of type T.
func Count[T any](q *Query) int {
	t := q.table(KindOf[T](), false, false)
	if t == nil {
		return 0
	}
	return len(t.order)
}
