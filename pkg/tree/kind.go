package tree

import "reflect"

// Kind identifies a record type.
type Kind struct {
	t reflect.Type
}

// KindOf returns the kind of records of type T.
func KindOf[T any]() Kind {
	return Kind{t: reflect.TypeFor[T]()}
}

// kindOfValue returns the kind of the dynamic type of rec.
func kindOfValue(rec any) Kind {
	return Kind{t: reflect.TypeOf(rec)}
}

// Type returns the Go type of the records of this kind.
func (k Kind) Type() reflect.Type { return k.t }

// String returns the Go type name.
func (k Kind) String() string {
	if k.t == nil {
		return "<nil>"
	}
	return k.t.String()
}
