package tree

import "math"

// Generation counts the changes made to a node.
// After each change the new generation is greater than the previous one.
type Generation uint64

// FirstGeneration is the generation of a freshly created node.
const FirstGeneration Generation = 1

// Next returns the generation following g.
// It panics on overflow, which is unreachable in practice.
func (g Generation) Next() Generation {
	if g == math.MaxUint64 {
		panic("tree: generation overflow")
	}
	return g + 1
}
