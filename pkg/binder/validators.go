package binder

import (
	"net/url"

	"github.com/go-playground/validator/v10"
)

// urlValidator accepts absolute URLs and the empty string. Empty is allowed
// so a PATCH can clear a previously configured URL; pair with `required` when
// a value must be present.
func urlValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	u, err := url.Parse(value)
	return err == nil && u.Scheme != "" && u.Host != ""
}
