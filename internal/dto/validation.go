package dto

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("currency_code", validCurrencyCode)
	}
}

// validCurrencyCode accepts three uppercase ASCII letters, the shape of an
// ISO 4217 alphabetic code. Which codes the engine serves is the operator's
// business; the tag only rejects malformed input early.
func validCurrencyCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
