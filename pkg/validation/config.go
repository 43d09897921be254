package validation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrInvalidConfig is matched by every FieldError.
var ErrInvalidConfig = errors.New("invalid configuration")

// FieldError names the config field a rule rejected.
type FieldError struct {
	Config string
	Field  string
	Reason string
	Cause  error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Config, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Cause }

func (e *FieldError) Is(target error) bool { return target == ErrInvalidConfig }

// ConfigValidator provides a fluent interface for validating configuration values.
// It collects all validation errors rather than failing on the first one.
type ConfigValidator struct {
	errors []error
	name   string
}

// NewConfigValidator creates a new config validator with the given config name.
func NewConfigValidator(configName string) *ConfigValidator {
	return &ConfigValidator{name: configName}
}

func (cv *ConfigValidator) fail(field string, cause error, format string, args ...any) *ConfigValidator {
	cv.errors = append(cv.errors, &FieldError{
		Config: cv.name,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
		Cause:  cause,
	})
	return cv
}

// Required validates that a string field is not empty.
func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	if strings.TrimSpace(value) == "" {
		return cv.fail(field, nil, "required field is empty")
	}
	return cv
}

// RangeInt validates that an int field is within the specified range.
func (cv *ConfigValidator) RangeInt(field string, value, min, max int) *ConfigValidator {
	if value < min || value > max {
		return cv.fail(field, nil, "value %d is outside range [%d, %d]", value, min, max)
	}
	return cv
}

// MinDuration validates that a duration is at least the minimum.
func (cv *ConfigValidator) MinDuration(field string, value, min time.Duration) *ConfigValidator {
	if value < min {
		return cv.fail(field, nil, "duration %v is below minimum %v", value, min)
	}
	return cv
}

// OneOf validates that a string field is one of the allowed values.
func (cv *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	if !slices.Contains(allowed, value) {
		return cv.fail(field, nil, "value %q must be one of %v", value, allowed)
	}
	return cv
}

// Paired rejects a value set without its partner, such as an access key
// without its secret.
func (cv *ConfigValidator) Paired(field, value, partnerField, partner string) *ConfigValidator {
	if (value == "") != (partner == "") {
		return cv.fail(field, nil, "must be set together with %s", partnerField)
	}
	return cv
}

// Endpoint validates a transport address of the form scheme://rest with
// one of the given schemes.
func (cv *ConfigValidator) Endpoint(field, value string, schemes ...string) *ConfigValidator {
	scheme, rest, ok := strings.Cut(value, "://")
	if !ok || rest == "" {
		return cv.fail(field, nil, "address %q is not of the form scheme://address", value)
	}
	if len(schemes) > 0 && !slices.Contains(schemes, scheme) {
		return cv.fail(field, nil, "scheme %q must be one of %v", scheme, schemes)
	}
	return cv
}

// Custom applies a custom validation function.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		return cv.fail(field, err, "%v", err)
	}
	return cv
}

// When conditionally applies validations if the condition is true.
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// Errors returns all validation errors.
func (cv *ConfigValidator) Errors() []error {
	return cv.errors
}

// Validate returns a combined error if any validations failed.
func (cv *ConfigValidator) Validate() error {
	switch len(cv.errors) {
	case 0:
		return nil
	case 1:
		return cv.errors[0]
	default:
		return fmt.Errorf("%s validation failed with %d errors: %w", cv.name, len(cv.errors), errors.Join(cv.errors...))
	}
}

// DefaultOr returns the value if it's non-zero, otherwise returns the default.
func DefaultOr[T comparable](value, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}

// DefaultOrInt returns the value if it's positive, otherwise returns the default.
func DefaultOrInt(value, defaultValue int) int {
	if value <= 0 {
		return defaultValue
	}
	return value
}

// DefaultOrDuration returns the value if it's positive, otherwise returns the default.
func DefaultOrDuration(value, defaultValue time.Duration) time.Duration {
	if value <= 0 {
		return defaultValue
	}
	return value
}
