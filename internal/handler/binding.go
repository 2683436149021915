package handler

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterBindings installs custom binding rules on gin's validator engine.
// Call once before the router starts serving.
func RegisterBindings() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// notblank rejects strings that are empty once trimmed; "required"
	// alone accepts all-whitespace titles.
	v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}
