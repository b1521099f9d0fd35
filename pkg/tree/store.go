package tree

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Handle addresses a node in a Store.
type Handle uint64

// Invalid is the zero handle. No node is ever created with it.
const Invalid Handle = 0

// Store is a sparse table of nodes keyed by handles. Records are grouped
// into one table per kind. Nodes are never removed.
type Store struct {
	id uuid.UUID

	// world is shared by scoped queries and held exclusively by exclusive
	// queries. Node creation only happens under the exclusive lock.
	world sync.RWMutex

	mu     sync.Mutex // guards tables and kindSeq
	tables map[Kind]*table
	kindSeq int

	next   Handle
	byPath map[string]Handle
}

// table holds every record of one kind.
type table struct {
	seq   int // lock ordering
	mu    sync.RWMutex
	rows  map[Handle]any // values are *T
	order []Handle       // sorted handles with a record
}

// NewStore creates an empty store.
func NewStore() *Store {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Store{
		id:     id,
		tables: make(map[Kind]*table),
		next:   1,
		byPath: make(map[string]Handle),
	}
}

// ID returns the UUID identifying this store instance.
func (s *Store) ID() uuid.UUID { return s.id }

// tableFor returns the table for k, creating it when create is set.
func (s *Store) tableFor(k Kind, create bool) *table {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[k]
	if !ok && create {
		s.kindSeq++
		t = &table{seq: s.kindSeq, rows: make(map[Handle]any)}
		s.tables[k] = t
	}
	return t
}

// snapshotTables returns every table that exists right now.
func (s *Store) snapshotTables() map[Kind]*table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.tables)
}

func (t *table) put(h Handle, rec any) {
	if _, exists := t.rows[h]; !exists {
		i, _ := slices.BinarySearch(t.order, h)
		t.order = slices.Insert(t.order, i, h)
	}
	t.rows[h] = rec
}

func pathKey(path []string) string {
	return strings.Join(path, "\x00")
}

// Create spawns a new node. The parent, when given, must already exist and
// the path must be unique across the store. Violations are programmer errors
// and panic. Create requires an exclusive query.
func (q *Query) Create(path []string, parent Handle, relevance *Relevance) Handle {
	q.mustBeLive()
	if !q.access.Exclusive {
		panic("tree: Create requires an exclusive query")
	}
	if len(path) == 0 {
		panic("tree: node path must be nonempty")
	}
	s := q.store
	key := pathKey(path)
	if existing, ok := s.byPath[key]; ok {
		panic(fmt.Sprintf("tree: duplicate node path %q (already used by node %d)", strings.Join(path, "."), existing))
	}
	if parent != Invalid && !q.Exists(parent) {
		panic(fmt.Sprintf("tree: parent node %d of %q does not exist", parent, strings.Join(path, ".")))
	}
	if relevance != nil && !q.Exists(relevance.Dependency) {
		panic(fmt.Sprintf("tree: relevance dependency %d of %q does not exist", relevance.Dependency, strings.Join(path, ".")))
	}

	h := s.next
	s.next++
	s.byPath[key] = h

	Insert(q, h, Node{Path: slices.Clone(path), Generation: FirstGeneration})
	if parent != Invalid {
		Insert(q, h, Parent{Handle: parent})
		children, ok := Ptr[Children](q, parent)
		if !ok {
			Insert(q, parent, Children{})
			children = MustPtr[Children](q, parent)
		}
		children.Handles = append(children.Handles, h)
	}
	if relevance != nil {
		Insert(q, h, *relevance)
	}
	return h
}

// Exists reports whether h addresses a node in the store.
func (q *Query) Exists(h Handle) bool {
	q.mustBeLive()
	return h != Invalid && h < q.store.next
}

// Len returns the number of nodes in the store.
func (q *Query) Len() int {
	q.mustBeLive()
	return int(q.store.next - 1)
}

// Lookup returns the node with the given path.
func (q *Query) Lookup(path []string) (Handle, bool) {
	q.mustBeLive()
	h, ok := q.store.byPath[pathKey(path)]
	return h, ok
}
