package backend

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkPayload rejects backend responses that do not match the expected shape.
func checkPayload(path string, v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: invalid payload from %s: %w", ErrUpstream, path, err)
	}
	return nil
}
