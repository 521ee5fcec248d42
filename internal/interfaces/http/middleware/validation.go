package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/apibase/backend/internal/interfaces/http/dto"
)

// SetupValidator makes binding errors report wire field names instead of
// Go struct field names.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(wireFieldName)
}

// wireFieldName resolves a struct field's name as it appears on the wire:
// the json tag when present, the form tag otherwise. The validator falls
// back to the Go field name when this returns "".
func wireFieldName(fld reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return ""
}

// FormatValidationErrors converts a binding error into the standard
// validation response. Errors other than validator.ValidationErrors
// yield the response with no field details.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details = make([]dto.ValidationDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{
				Field:   fe.Field(),
				Message: getValidationMessage(fe),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 with per-field messages.
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, RequestIDFromContext(c)))
}

// plainMessages covers tags whose message needs no parameter.
var plainMessages = map[string]string{
	"required": "This field is required",
	"email":    "Invalid email format",
	"uuid":     "Invalid UUID format",
	"url":      "Invalid URL format",
	"numeric":  "Must be numeric",
	"alphanum": "Must be alphanumeric",
	"alpha":    "Must contain only letters",
}

// getValidationMessage renders a human-readable message for one failed rule.
func getValidationMessage(fe validator.FieldError) string {
	if msg, ok := plainMessages[fe.Tag()]; ok {
		return msg
	}

	switch fe.Tag() {
	case "min":
		return withLength("Must be at least "+fe.Param(), fe)
	case "max":
		return withLength("Must be at most "+fe.Param(), fe)
	case "len":
		return "Must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "gte":
		return "Must be greater than or equal to " + fe.Param()
	case "lte":
		return "Must be less than or equal to " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	case "lt":
		return "Must be less than " + fe.Param()
	}

	return "Invalid value"
}

// withLength appends "characters" for string fields, where the bound
// counts length rather than magnitude.
func withLength(msg string, fe validator.FieldError) string {
	if fe.Type().Kind() == reflect.String {
		return msg + " characters"
	}
	return msg
}
