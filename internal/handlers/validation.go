package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	maxJSONBodyBytes = 1 << 20
	// maxMessageBytes bounds the content of a single chat message.
	maxMessageBytes = 32 * 1024
)

var requestValidator *validator.Validate

func init() {
	requestValidator = validator.New()
	_ = requestValidator.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxMessageBytes
	})
}

// describeValidation turns validator errors into one client-facing line.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return "Invalid request: " + strings.Join(parts, ", ")
}
