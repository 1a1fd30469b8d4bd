package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/solutionspelichet/library-un/internal/errors"
)

// FieldError is one failed rule on a request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator checks structs against their validate tags and reports
// failures as VALIDATION AppErrors
type Validator struct {
	validate *validator.Validate
}

// New creates a validator that names fields after their json tag
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("filename", isValidFilename)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates s. The returned error, if any, is a VALIDATION AppError
// whose "fields" context lists every failure.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewAppError(apperrors.ErrTypeValidation, "invalid input", err)
	}

	fields := make([]FieldError, 0, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		m := formatFieldError(fe)
		fields = append(fields, FieldError{Field: fe.Field(), Message: m})
		msgs = append(msgs, m)
	}
	return apperrors.NewValidationError(strings.Join(msgs, "; ")).WithContext("fields", fields)
}

func formatFieldError(err validator.FieldError) string {
	field, param := err.Field(), err.Param()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "alpha":
		return fmt.Sprintf("%s must be a column letter", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isValidFilename rejects path separators and traversal
func isValidFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return false
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return false
	}
	return len(name) <= 255
}
