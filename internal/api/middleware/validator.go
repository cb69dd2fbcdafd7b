package middleware

import (
	"fmt"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// certificateNumberPattern <PREFIX>-<year>-<sequence>, e.g. CERT-2026-000042.
var certificateNumberPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,16}-[0-9]{4}-[0-9]{1,12}$`)

// RegisterValidators adds the custom binding rules. Call once at startup.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("certnumber", func(fl validator.FieldLevel) bool {
		return certificateNumberPattern.MatchString(fl.Field().String())
	})
}
