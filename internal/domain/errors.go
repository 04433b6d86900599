package domain

import (
	"errors"
	"fmt"
)

// Taxonomía de errores del pipeline. Solo ErrInvalidAssumptions y
// ErrListingSource llegan al caller como fallos explícitos; ErrRentLookup
// degrada a un resultado más pequeño.
var (
	ErrInvalidAssumptions = errors.New("invalid assumptions")
	ErrListingSource      = errors.New("listing source error")
	ErrRentLookup         = errors.New("rent lookup error")
	ErrTimeout            = errors.New("evaluation timed out")
)

// AssumptionError identifica el campo de entrada que no pasó la validación.
type AssumptionError struct {
	Field  string
	Value  any
	Reason string
}

func (e *AssumptionError) Error() string {
	return fmt.Sprintf("invalid assumptions: %s %s (got %v)", e.Field, e.Reason, e.Value)
}

// Unwrap permite errors.Is(err, ErrInvalidAssumptions).
func (e *AssumptionError) Unwrap() error {
	return ErrInvalidAssumptions
}

func invalid(field string, value any, reason string) error {
	return &AssumptionError{Field: field, Value: value, Reason: reason}
}
