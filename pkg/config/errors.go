package config

import "errors"

var (
	ErrUnknownVariant = errors.New("unknown variant")
	ErrConstraint     = errors.New("constraint not satisfied")
	ErrUnknownRoot    = errors.New("unknown root")
)
