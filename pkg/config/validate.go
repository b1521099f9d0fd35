package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/cfgtree/internal/constraint"
	"github.com/mesh-intelligence/cfgtree/pkg/tree"
)

// Validate checks the constraint expression of every relevant scalar.
// Scalars inside inactive variants are skipped.
func Validate(a *App) error {
	q := a.store.Query(tree.Access{ReadAll: true})
	defer q.Release()
	return ValidateWith(q)
}

// ValidateWith is Validate through a query that can read every kind.
func ValidateWith(q *tree.Query) error {
	var errs []error
	for h, sf := range tree.Each[ScalarField](q) {
		if sf.Constraint == "" || !tree.IsRelevantInTree(q, h) {
			continue
		}
		path := strings.Join(tree.MustGet[tree.Node](q, h).Path, ".")
		ok, err := constraint.Check(sf.Constraint, sf.Value(q, h))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %s: %w", path, sf.Constraint, ErrConstraint))
		}
	}
	return errors.Join(errs...)
}
