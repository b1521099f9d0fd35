package config

import (
	"reflect"
	"strings"
)

// Manager is a backend that attaches behaviour to scalar nodes. Spawning a
// scalar of type ty calls NewEntity once and attaches every returned record
// to the node, keyed by its dynamic type.
type Manager interface {
	Supports(ty ScalarType) bool
	NewEntity(ty ScalarType) []any
}

// Chain combines managers into one. A chain supports a type only if every
// member does, and the records of all members land on the same node.
type Chain []Manager

// Supports reports whether every member supports ty.
func (c Chain) Supports(ty ScalarType) bool {
	for _, m := range c {
		if !m.Supports(ty) {
			return false
		}
	}
	return true
}

// NewEntity merges the records of every member in order.
func (c Chain) NewEntity(ty ScalarType) []any {
	var recs []any
	for _, m := range c {
		recs = append(recs, m.NewEntity(ty)...)
	}
	return recs
}

// Signature lists the members in order.
func (c Chain) Signature() string {
	parts := make([]string, len(c))
	for i, m := range c {
		parts[i] = Signature(m)
	}
	return "Chain[" + strings.Join(parts, ", ") + "]"
}

// Signature identifies a manager set. Two registrations in one App must
// produce the same signature. Managers may provide a Signature method;
// otherwise the dynamic type is used.
func Signature(m Manager) string {
	if m == nil {
		return "Chain[]"
	}
	if s, ok := m.(interface{ Signature() string }); ok {
		return s.Signature()
	}
	return reflect.TypeOf(m).String()
}

// unsupported returns the innermost manager that rejects ty.
func unsupported(m Manager, ty ScalarType) (Manager, bool) {
	if c, ok := m.(Chain); ok {
		for _, member := range c {
			if bad, ok := unsupported(member, ty); ok {
				return bad, true
			}
		}
		return nil, false
	}
	if m.Supports(ty) {
		return nil, false
	}
	return m, true
}

// Find returns the first installed manager of type M, searching chains.
func Find[M Manager](app *App) (M, bool) {
	return find[M](app.Manager())
}

func find[M Manager](m Manager) (M, bool) {
	if found, ok := m.(M); ok {
		return found, true
	}
	if c, ok := m.(Chain); ok {
		for _, member := range c {
			if found, ok := find[M](member); ok {
				return found, true
			}
		}
	}
	var zero M
	return zero, false
}
