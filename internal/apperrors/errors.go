// Package apperrors provides centralized, categorized error handling for
// the batch pipeline. Errors carry a component, a category, and free-form
// context, so that batch-completion reports (spec §7: "errors are reported
// at batch completion, aggregated by kind") can group failures without
// string-matching messages.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Category classifies an error for aggregation and for retry policy.
type Category string

const (
	CategoryFingerprint   Category = "fingerprint"
	CategoryOracle        Category = "oracle"
	CategoryCache         Category = "cache"
	CategoryLedger        Category = "ledger"
	CategoryOrganizer     Category = "organizer"
	CategoryScoring       Category = "scoring"
	CategoryConfiguration Category = "configuration"
	CategoryCancellation  Category = "cancellation"
	CategoryIO            Category = "io"
	CategoryValidation    Category = "validation"
)

// Retryable reports whether errors of this category are, by default,
// transient (timeout, 5xx, disk contention) rather than permanent.
func (c Category) Retryable() bool {
	switch c {
	case CategoryOracle, CategoryIO:
		return true
	default:
		return false
	}
}

// EnhancedError wraps an error with component/category/context metadata.
type EnhancedError struct {
	Err       error
	Component string
	Category  Category
	Context   map[string]any
	Timestamp time.Time
}

func (ee *EnhancedError) Error() string {
	if ee.Err != nil {
		return fmt.Sprintf("%s: %v", ee.Component, ee.Err)
	}
	return ee.Component
}

func (ee *EnhancedError) Unwrap() error { return ee.Err }

// Is supports errors.Is comparisons by category when the target is also an
// *EnhancedError.
func (ee *EnhancedError) Is(target error) bool {
	var other *EnhancedError
	if errors.As(target, &other) {
		return ee.Category == other.Category
	}
	return false
}

// ErrorBuilder provides the fluent construction style used throughout this
// codebase: Newf(...).Component(...).Category(...).Context(...).Build().
type ErrorBuilder struct {
	err       error
	component string
	category  Category
	context   map[string]any
}

// New starts a builder around an existing error.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts a builder around a newly formatted error.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category Category) *ErrorBuilder {
	eb.category = category
	return eb
}

func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build finalizes the error.
func (eb *ErrorBuilder) Build() *EnhancedError {
	component := eb.component
	if component == "" {
		component = "unknown"
	}
	return &EnhancedError{
		Err:       eb.err,
		Component: component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
}

// CategoryOf returns the category of err if it (or something it wraps) is
// an *EnhancedError, and false otherwise.
func CategoryOf(err error) (Category, bool) {
	var ee *EnhancedError
	if errors.As(err, &ee) {
		return ee.Category, true
	}
	return "", false
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, category Category) bool {
	c, ok := CategoryOf(err)
	return ok && c == category
}
