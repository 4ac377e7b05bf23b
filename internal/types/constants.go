// Package types provides type-safe constants shared across the devc codebase.
//
// This package centralizes the enumerated types used by the update and
// installation subsystems, replacing magic strings with typed constants that
// provide compile-time safety and validation methods.
package types

import (
	"fmt"
	"strings"
)

// Category classifies a failure for exit-code mapping and retry policy.
type Category string

const (
	// CategoryTransient indicates a network failure during download.
	// Transient failures are retried a bounded number of times.
	CategoryTransient Category = "transient"
	// CategoryIntegrity indicates a checksum or structural verification
	// failure. Never retried; the artifact is presumed bad.
	CategoryIntegrity Category = "integrity"
	// CategoryConcurrency indicates the installation lock is held by
	// another live process.
	CategoryConcurrency Category = "concurrency"
	// CategoryConsistency indicates the installation was found unhealthy
	// outside of a recoverable transaction state.
	CategoryConsistency Category = "consistency"
)

// AllCategories returns all valid failure categories.
func AllCategories() []Category {
	return []Category{CategoryTransient, CategoryIntegrity, CategoryConcurrency, CategoryConsistency}
}

// Validate checks if the Category is a valid value.
func (c Category) Validate() error {
	switch c {
	case CategoryTransient, CategoryIntegrity, CategoryConcurrency, CategoryConsistency:
		return nil
	case "":
		return fmt.Errorf("category is required")
	default:
		return fmt.Errorf("invalid category '%s'", c)
	}
}

// String returns the string representation of the Category.
func (c Category) String() string {
	return string(c)
}

// Retryable returns true if failures in this category may be retried.
func (c Category) Retryable() bool {
	return c == CategoryTransient
}

// ParseCategory parses a string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(s))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// Phase represents the durable state of an update transaction.
type Phase string

const (
	// PhaseDownloading indicates the artifact fetch is in progress or was
	// interrupted; the runtime directory has not been touched.
	PhaseDownloading Phase = "downloading"
	// PhaseVerifying indicates checksum and structural verification.
	PhaseVerifying Phase = "verifying"
	// PhaseSwapping indicates the rename pair may be in flight; recovery
	// must inspect the filesystem to resolve it.
	PhaseSwapping Phase = "swapping"
	// PhaseCommitted indicates the new installation is live and smoke-tested.
	PhaseCommitted Phase = "committed"
	// PhaseRolledBack indicates the previous installation was restored.
	PhaseRolledBack Phase = "rolledback"
)

// AllPhases returns all valid transaction phases.
func AllPhases() []Phase {
	return []Phase{PhaseDownloading, PhaseVerifying, PhaseSwapping, PhaseCommitted, PhaseRolledBack}
}

// Validate checks if the Phase is a valid value.
func (p Phase) Validate() error {
	switch p {
	case PhaseDownloading, PhaseVerifying, PhaseSwapping, PhaseCommitted, PhaseRolledBack:
		return nil
	case "":
		return fmt.Errorf("phase is required")
	default:
		return fmt.Errorf("invalid phase '%s'", p)
	}
}

// String returns the string representation of the Phase.
func (p Phase) String() string {
	return string(p)
}

// Terminal returns true if the phase is a final state of a transaction.
func (p Phase) Terminal() bool {
	return p == PhaseCommitted || p == PhaseRolledBack
}

// TouchedRuntime returns true if a transaction interrupted in this phase
// may have mutated the runtime directory.
func (p Phase) TouchedRuntime() bool {
	return p == PhaseSwapping || p == PhaseCommitted || p == PhaseRolledBack
}

// ParsePhase parses a string into a Phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToLower(s))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}
