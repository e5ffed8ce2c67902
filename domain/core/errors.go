package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Schema errors abort before any modeling begins
	ErrSchema           = errors.New("dataset schema violation")
	ErrMissingColumn    = fmt.Errorf("%w: required column missing", ErrSchema)
	ErrNonBinaryOutcome = fmt.Errorf("%w: outcome not strictly binary", ErrSchema)
	ErrInvalidLevels    = fmt.Errorf("%w: categorical levels do not match schema", ErrSchema)
	ErrMissingOutcome   = fmt.Errorf("%w: subject missing outcome", ErrSchema)

	// Convergence errors are fatal for the affected fit
	ErrConvergence    = errors.New("convergence failure")
	ErrChainInit      = fmt.Errorf("%w: chain failed to initialize", ErrConvergence)
	ErrNonFiniteDraw  = fmt.Errorf("%w: chain produced non-finite draw", ErrConvergence)
	ErrNoUsableRefits = fmt.Errorf("%w: every leave-one-out refit failed", ErrConvergence)

	// Artifact errors surface at the end-of-run integrity check
	ErrArtifactIntegrity = errors.New("expected output artifact missing")

	// Configuration errors
	ErrConfig = errors.New("invalid run configuration")
)

// Error constructors with context

func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w: %q", ErrMissingColumn, column)
}

func NewNonBinaryOutcomeError(row int, value string) error {
	return fmt.Errorf("%w: row %d has value %q", ErrNonBinaryOutcome, row, value)
}

func NewInvalidLevelsError(column string, got, want []string) error {
	return fmt.Errorf("%w: column %q has levels [%s], schema requires [%s]",
		ErrInvalidLevels, column, strings.Join(got, ","), strings.Join(want, ","))
}

func NewChainInitError(chain int, cause error) error {
	return fmt.Errorf("%w: chain %d: %v", ErrChainInit, chain, cause)
}

func NewNonFiniteDrawError(chain, iteration int, parameter string) error {
	return fmt.Errorf("%w: chain %d iteration %d parameter %s", ErrNonFiniteDraw, chain, iteration, parameter)
}

func NewArtifactIntegrityError(missing []string) error {
	return fmt.Errorf("%w: [%s]", ErrArtifactIntegrity, strings.Join(missing, ", "))
}

func NewConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrConfig, field, reason)
}

// Error checking helpers

func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

func IsConvergenceFailure(err error) bool {
	return errors.Is(err, ErrConvergence)
}

func IsArtifactIntegrityError(err error) bool {
	return errors.Is(err, ErrArtifactIntegrity)
}
