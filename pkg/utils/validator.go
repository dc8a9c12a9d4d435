package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	codePattern    = regexp.MustCompile(`^[0-9]{1,6}$`)
	controlPattern = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// NewValidator returns a validator with required-struct checks enabled and the
// generic accounting_code tag registered. Callers add their own domain tags
// with MustRegister.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	MustRegister(v, "accounting_code", func(fl validator.FieldLevel) bool {
		return codePattern.MatchString(fl.Field().String())
	})
	return v
}

// MustRegister registers a custom tag and panics on a malformed registration
func MustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// FormatValidationError flattens validator errors into one readable line
func FormatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// SanitizeString removes control characters from free text such as titles and comments
func SanitizeString(s string) string {
	return strings.TrimSpace(controlPattern.ReplaceAllString(s, ""))
}
