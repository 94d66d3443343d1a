package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalid   = errors.New("invalid input")
	ErrDuplicate = errors.New("point already registered")
	ErrNotFound  = errors.New("not found")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// check validates v and reports failures as ErrInvalid.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		var out []string
		for _, fe := range ve {
			out = append(out, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(out, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}
