// Package constraint evaluates the boolean expressions that scalar metadata
// may carry to restrict accepted values. Expressions use expr-lang syntax
// and see the candidate value as the variable "value".
package constraint

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// Constraint evaluation errors.
var (
	ErrEmpty   = errors.New("constraint expression must not be empty")
	ErrNotBool = errors.New("constraint expression must evaluate to a boolean")
)

// programs caches compiled expressions by source text.
var programs sync.Map

// Compile compiles expression, reusing a cached program when available.
func Compile(expression string) (*exprvm.Program, error) {
	if expression == "" {
		return nil, ErrEmpty
	}
	if cached, ok := programs.Load(expression); ok {
		return cached.(*exprvm.Program), nil
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile constraint %q: %w", expression, err)
	}
	programs.Store(expression, program)
	return program, nil
}

// Check reports whether value satisfies expression.
func Check(expression string, value any) (bool, error) {
	program, err := Compile(expression)
	if err != nil {
		return false, err
	}
	out, err := exprlang.Run(program, map[string]any{"value": normalize(value)})
	if err != nil {
		return false, fmt.Errorf("evaluate constraint %q: %w", expression, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("%w: %q returned %T", ErrNotBool, expression, out)
	}
	return ok, nil
}

// normalize strips named numeric and string types such as time.Duration
// down to the builtin kinds expr operators understand. Colours become hex
// strings.
func normalize(value any) any {
	switch v := value.(type) {
	case interface{ Hex() string }:
		return v.Hex()
	case fmt.Stringer:
		if reflect.TypeOf(value).Kind() == reflect.Struct {
			return v.String()
		}
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	default:
		return value
	}
}
