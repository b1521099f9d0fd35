// Package config binds configuration schemas to a tree.Store.
//
// A schema is built from Field values: scalars (Number, String, Bool, Color,
// Bare) and composites (Struct, Enum). Registering a schema with App.Init
// spawns one node per field, invoking the installed Manager at every scalar
// leaf so that backends such as codec and editor can attach their own
// records. Afterwards Root.Read projects the current values back out and
// Root.Changed returns a cheap witness that differs whenever any scalar below
// the root has been mutated.
//
// Enums spawn a subtree for every variant, not only the active one. Inactive
// variants stay in the store, marked with a tree.Relevance link to the
// discriminant node, so switching variants never spawns or removes nodes.
package config
