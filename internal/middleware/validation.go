package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"product-catalog/internal/domain"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	// report json names so errors match the request payload
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// ValidateRequest validates a struct with validation tags
func ValidateRequest(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	errs := FormatValidationErrors(err)
	if len(errs) == 0 {
		return fmt.Errorf("failed to validate request: %w", err)
	}
	fields := make([]string, 0, len(errs))
	reasons := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
		reasons = append(reasons, e.Field+": "+e.Message)
	}
	return domain.NewFieldsValidationError(fields, strings.Join(reasons, "; "))
}

// DecodeAndValidate strictly decodes a JSON request body into v and
// validates it. Unknown fields, malformed JSON and trailing data are
// reported as domain validation errors.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := DecodeJSON(w, r, v); err != nil {
		return err
	}
	return ValidateRequest(v)
}

// DecodeJSON strictly decodes the body without running struct validation
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return domain.NewValidationError("body", "must contain a single JSON object", nil)
	}
	return nil
}

func decodeError(err error) error {
	var (
		syntaxErr  *json.SyntaxError
		typeErr    *json.UnmarshalTypeError
		maxBytes   *http.MaxBytesError
		unknownKey = "json: unknown field "
	)
	switch {
	case errors.Is(err, io.EOF):
		return domain.NewValidationError("body", "must not be empty", nil)
	case errors.Is(err, io.ErrUnexpectedEOF), errors.As(err, &syntaxErr):
		return domain.NewValidationError("body", "malformed JSON", nil)
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return domain.NewValidationError(field, "must be of type "+typeErr.Type.String(), typeErr.Value)
	case errors.As(err, &maxBytes):
		return domain.NewValidationError("body", fmt.Sprintf("must not exceed %d bytes", maxBytes.Limit), nil)
	case strings.HasPrefix(err.Error(), unknownKey):
		field := strings.Trim(strings.TrimPrefix(err.Error(), unknownKey), `"`)
		return domain.NewValidationError(field, "unknown field", nil)
	default:
		// custom UnmarshalJSON implementations (decimal, uuid) fail here
		return domain.NewValidationError("body", err.Error(), nil)
	}
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var errs []ValidationError

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			errs = append(errs, ValidationError{
				Field:   fieldPath(e),
				Message: getErrorMessage(e),
			})
		}
	}

	return errs
}

// fieldPath drops the root struct name from the namespace: "req.variants[0].name" -> "variants[0].name"
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "url", "http_url":
		return "Invalid URL"
	case "uuid", "uuid4":
		return "Invalid UUID"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "len":
		return "Must have length " + e.Param()
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	case "lte":
		return "Value must be less than or equal to " + e.Param()
	case "gt":
		return "Value must be greater than " + e.Param()
	case "lt":
		return "Value must be less than " + e.Param()
	default:
		return "Invalid value"
	}
}
