package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below unwrap to one of these.
var (
	// ErrInvalidConfiguration is returned when trade parameters fail validation.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDomain is returned when a computation receives an input outside its domain.
	ErrDomain = errors.New("domain error")

	// ErrNoValidPaths is returned when every simulated path was excluded from aggregation.
	ErrNoValidPaths = errors.New("no valid paths to aggregate")
)

// ConfigurationError describes a rejected trade parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// DomainError reports a non-positive period start price met by the cash flow engine.
type DomainError struct {
	Path   int     // path index
	Period int     // absolute period, 1-based
	Price  float64 // offending period start price
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error: path %d period %d has non-positive start price %g", e.Path, e.Period, e.Price)
}

func (e *DomainError) Unwrap() error {
	return ErrDomain
}

// NumericalWarning marks a path excluded from aggregate statistics because it
// produced non-finite values. It is informational; runs continue.
type NumericalWarning struct {
	Path   int
	Reason string
}

func (w NumericalWarning) String() string {
	return fmt.Sprintf("path %d excluded: %s", w.Path, w.Reason)
}
