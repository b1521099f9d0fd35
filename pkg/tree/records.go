package tree

// Node is present on every handle in the store.
type Node struct {
	// Path is the hierarchical path from the root key. It is unique across
	// the store and never changes.
	Path []string
	// Generation is bumped by whoever mutates a scalar value.
	Generation Generation
}

// Label returns the last path segment.
func (n Node) Label() string {
	if len(n.Path) == 0 {
		panic("tree: node path must be nonempty")
	}
	return n.Path[len(n.Path)-1]
}

// Parent links a child node to the node that spawned it.
type Parent struct {
	Handle Handle
}

// Children lists the child nodes of a node in creation order.
// Managers use it to walk the tree hierarchically.
type Children struct {
	Handles []Handle
}

// RootMarker tags the root node of a registered top-level tree.
type RootMarker struct {
	Key string
}

// Relevance marks a node as conditionally irrelevant based on the current
// state of another node, such as the fields of an inactive enum variant.
//
// Relevance is local: it is not inherited by descendants. Consumers that
// care about relevance walk the ancestors themselves.
type Relevance struct {
	// Dependency is the node whose state decides relevance.
	Dependency Handle
	// Predicate reports whether the dependency is in a state that makes
	// this node relevant.
	Predicate func(dep Entity) bool
}

// Entity pairs a handle with the query it is read through.
type Entity struct {
	Query  *Query
	Handle Handle
}

// Kinds of the records maintained by the store itself.
var (
	KindNode      = KindOf[Node]()
	KindParent    = KindOf[Parent]()
	KindChildren  = KindOf[Children]()
	KindRoot      = KindOf[RootMarker]()
	KindRelevance = KindOf[Relevance]()
)
