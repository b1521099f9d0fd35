package codec

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed = errors.New("malformed input")
	ErrDecode    = errors.New("decode failed")
	ErrType      = errors.New("unexpected value type")
	ErrRange     = errors.New("value out of range")
)

// DecodeError reports the key that aborted a Deserialize call. Keys that
// precede it in the input have already been applied.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %q: %v", e.Key, e.Err)
}

// Unwrap exposes both ErrDecode and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
