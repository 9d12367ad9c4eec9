package note

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validate = v
	})
	return validate
}

// Validate checks any of the package's tagged types and returns a
// validation error naming the first offending field. A Note that carries a
// summary must carry a non-blank one.
func Validate(v any) error {
	if err := instance().Struct(v); err != nil {
		return fieldError(err)
	}
	switch n := v.(type) {
	case Note:
		if n.Summary != nil {
			return ValidateSummary(n.Summary)
		}
	case *Note:
		if n != nil && n.Summary != nil {
			return ValidateSummary(n.Summary)
		}
	}
	return nil
}

func fieldError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.Validation(apperrors.CodeInvalidInput, "invalid input").WithCause(err).Build()
	}

	fe := fieldErrs[0]
	code := apperrors.CodeInvalidInput
	switch fe.Field() {
	case "title":
		code = apperrors.CodeEmptyTitle
	case "user_id":
		code = apperrors.CodeMissingUserID
	case "id":
		code = apperrors.CodeMissingNoteID
	}
	return apperrors.Validation(code, fieldMessage(fe)).
		WithDetails(err.Error()).
		Build()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "eqfield":
		return "passwords do not match"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
