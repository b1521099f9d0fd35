package codec

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mesh-intelligence/cfgtree/pkg/config"
	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// Separator joins path segments into keys.
const Separator = "."

// Entry is one key of the flat map.
type Entry struct {
	Key   string
	Value any
}

type located struct {
	path []string
	h    tree.Handle
	b    *binding
}

func (c *Codec) access(bs []*binding, write bool) tree.Access {
	var a tree.Access
	for _, b := range bs {
		if write {
			a.Write = append(a.Write, b.value)
		} else {
			a.Read = append(a.Read, b.value)
		}
		a.Read = append(a.Read, b.kinds...)
	}
	if write && c.bump {
		a.Write = append(a.Write, tree.KindNode)
	} else {
		a.Read = append(a.Read, tree.KindNode)
	}
	return a
}

// locate scans the active types and returns their nodes sorted by path.
func (c *Codec) locate(q *tree.Query, bs []*binding) ([]located, error) {
	var out []located
	for _, b := range bs {
		for _, h := range b.scan(q) {
			path := tree.MustGet[tree.Node](q, h).Path
			ok, err := c.matches(path)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, located{path: path, h: h, b: b})
			}
		}
	}
	slices.SortFunc(out, func(x, y located) int { return slices.Compare(x.path, y.path) })
	return out, nil
}

func (c *Codec) matches(path []string) (bool, error) {
	if c.match == "" {
		return true, nil
	}
	if !doublestar.ValidatePattern(c.match) {
		return false, fmt.Errorf("matching %q: %w", c.match, doublestar.ErrBadPattern)
	}
	ok, err := doublestar.Match(c.match, strings.Join(path, "/"))
	if err != nil {
		return false, fmt.Errorf("matching %q: %w", c.match, err)
	}
	return ok, nil
}

// Entries returns every persisted key of the store in path order.
func (c *Codec) Entries(s *tree.Store) ([]Entry, error) {
	bs := c.activeBindings()
	q := s.Query(c.access(bs, false))
	defer q.Release()

	nodes, err := c.locate(q, bs)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(nodes))
	for _, n := range nodes {
		key := strings.Join(n.path, Separator)
		v, err := n.b.encode(q, n.h)
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", key, err)
		}
		entries = append(entries, Entry{Key: key, Value: v})
	}
	return entries, nil
}

// Serialize encodes the store in the codec's format.
func (c *Codec) Serialize(s *tree.Store) ([]byte, error) {
	entries, err := c.Entries(s)
	if err != nil {
		return nil, err
	}
	data, err := c.format.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", c.format.Name(), err)
	}
	return data, nil
}

// Deserialize decodes data and applies it to the store. Input that is not
// a well formed map fails with ErrMalformed before anything is written.
func (c *Codec) Deserialize(s *tree.Store, data []byte) error {
	entries, err := c.format.Unmarshal(data)
	if err != nil {
		return err
	}
	return c.Apply(s, entries)
}

// Apply writes entries in order. Unknown keys are skipped and absent keys
// keep their value. The first entry that fails to decode stops the call
// with a *DecodeError; earlier entries stay applied.
func (c *Codec) Apply(s *tree.Store, entries []Entry) error {
	bs := c.activeBindings()
	q := s.Query(c.access(bs, true))
	defer q.Release()

	nodes, err := c.locate(q, bs)
	if err != nil {
		return err
	}
	index := make(map[string]located, len(nodes))
	for _, n := range nodes {
		index[strings.Join(n.path, Separator)] = n
	}

	applied := 0
	for _, e := range entries {
		n, ok := index[e.Key]
		if !ok {
			c.logger.Debug("ignoring unknown key", "key", e.Key)
			continue
		}
		if err := n.b.decode(q, n.h, e.Value); err != nil {
			return &DecodeError{Key: e.Key, Err: err}
		}
		if c.bump {
			config.BumpGeneration(q, n.h)
		}
		applied++
	}
	c.logger.Debug("applied entries", "applied", applied, "ignored", len(entries)-applied)
	return nil
}
