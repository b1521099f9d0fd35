package config

import "github.com/mesh-intelligence/cfgtree/pkg/tree"

// Changed is a change witness. Two witnesses taken from the same field are
// equal exactly when no scalar in the subtree was mutated in between and,
// for enums, the same variant is active.
type Changed struct {
	gen  tree.Generation
	tag  int
	kids []Changed
}

// GenerationWitness returns the witness of a scalar node.
func GenerationWitness(g tree.Generation) Changed {
	return Changed{gen: g}
}

// Equal compares two witnesses member-wise.
func (c Changed) Equal(o Changed) bool {
	if c.gen != o.gen || c.tag != o.tag || len(c.kids) != len(o.kids) {
		return false
	}
	for i := range c.kids {
		if !c.kids[i].Equal(o.kids[i]) {
			return false
		}
	}
	return true
}
