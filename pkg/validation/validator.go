package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// ErrMissingArguments is wrapped by every request validation failure.
	ErrMissingArguments = errors.New("missing arguments")

	MaxNameLength = 255
	MaxIDLength   = 128
)

func init() {
	validate = validator.New()
}

// SubnetMask is a prefix length sent as a JSON number or a string. It keeps
// the raw text, so an explicit 0 is distinguishable from an absent value and
// a malformed mask reaches the engine instead of failing decoding.
type SubnetMask string

// Mask formats a prefix length.
func Mask(n int) SubnetMask {
	return SubnetMask(strconv.Itoa(n))
}

func (m *SubnetMask) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = SubnetMask(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("subnetmask: %w", err)
	}
	*m = SubnetMask(n.String())
	return nil
}

// Int parses the mask as a decimal prefix length.
func (m SubnetMask) Int() (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(m)))
}

// NetworkRequest carries createNetwork arguments. Address syntax and the
// numeric mask are checked by the engine and the topology store, not here.
type NetworkRequest struct {
	Address    string     `json:"address" validate:"required,max=64"`
	SubnetMask SubnetMask `json:"subnetmask" validate:"required,max=16"`
	Version    string     `json:"version" validate:"required,max=8"`
}

// HostRequest carries createHost arguments.
type HostRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Network string `json:"network" validate:"required,max=128"`
	Address string `json:"address" validate:"omitempty,max=64"`
}

// LinkRequest carries createLink arguments.
type LinkRequest struct {
	Source string `json:"source" validate:"required,max=128"`
	Target string `json:"target" validate:"required,max=128"`
}

// IDRequest carries a single element or topology identifier.
type IDRequest struct {
	ID string `json:"id" validate:"required,max=128"`
}

// LoadRequest names the topology to fetch. Merge keeps the current
// elements and topology id; by default the store is replaced.
type LoadRequest struct {
	ID    string `json:"id" validate:"required,max=128"`
	Merge bool   `json:"merge"`
}

// StoreRequest names the topology id to store under. An empty ID means the
// current topology id.
type StoreRequest struct {
	ID string `json:"id" validate:"omitempty,max=128"`
}

// ValidateRequest checks a request struct against its tags. The returned
// error wraps ErrMissingArguments.
func ValidateRequest(req any) error {
	if req == nil {
		return fmt.Errorf("%w: request cannot be nil", ErrMissingArguments)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrMissingArguments, formatValidationError(err))
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "max":
			return fmt.Errorf("%s: must not exceed %s characters", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
