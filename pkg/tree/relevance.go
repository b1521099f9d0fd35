package tree

import "fmt"

// IsRelevant evaluates the relevance link of h, if any. Only the direct
// dependency is consulted; ancestors are not.
func IsRelevant(q *Query, h Handle) bool {
	rel, ok := Get[Relevance](q, h)
	if !ok {
		return true
	}
	if !q.Exists(rel.Dependency) {
		panic(fmt.Sprintf("tree: node %d references invalid dependency %d", h, rel.Dependency))
	}
	return rel.Predicate(Entity{Query: q, Handle: rel.Dependency})
}

// IsRelevantInTree reports whether h and all of its ancestors are relevant.
// Nested enums need this walk; IsRelevant alone only looks at one link.
func IsRelevantInTree(q *Query, h Handle) bool {
	for h != Invalid {
		if !IsRelevant(q, h) {
			return false
		}
		parent, ok := Get[Parent](q, h)
		if !ok {
			return true
		}
		h = parent.Handle
	}
	return true
}

// Roots returns the handles of every root node in creation order.
func Roots(q *Query) []Handle {
	var roots []Handle
	for h := range Each[RootMarker](q) {
		roots = append(roots, h)
	}
	return roots
}
