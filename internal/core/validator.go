package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"rootle/internal/trigger"
	"rootle/internal/types"
)

// ValidationError describes one field that failed validation.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validator wraps go-playground/validator with the domain tags registered.
// Field names in errors use the JSON names clients send.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	if err := trigger.RegisterValidations(v); err != nil {
		// Registration only fails for an empty tag or nil func.
		panic(fmt.Sprintf("registering trigger validations: %v", err))
	}

	return &Validator{validate: v, logger: logger}
}

// ValidateStruct validates s and returns a *types.AppError whose code matches
// the first failure. All failures are listed under details.validation_errors.
func (v *Validator) ValidateStruct(s any) error {
	errs := v.Validate(s)
	if len(errs) == 0 {
		return nil
	}

	return types.NewAppErrorWithDetails(
		types.ErrorCode(errs[0].Code),
		errs[0].Message,
		nil,
		map[string]any{"validation_errors": errs},
	)
}

// Validate returns every field failure in s, or nil.
func (v *Validator) Validate(s any) []ValidationError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v.logger.Error("unexpected validator error", "error", err)
		return []ValidationError{{
			Field:   "",
			Code:    string(types.ErrCodeValidationInvalidField),
			Message: "request could not be validated",
		}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Code:    tagToErrorCode(fe.Tag()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func tagToErrorCode(tag string) string {
	switch tag {
	case "required", "required_if", "required_unless":
		return string(types.ErrCodeValidationMissingField)
	default:
		return string(types.ErrCodeValidationInvalidField)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "business_date":
		return fmt.Sprintf("%s must be a date in YYYYMMDD form", fe.Field())
	case "trigger_token":
		return fmt.Sprintf("%s may contain only letters, digits and dots", fe.Field())
	case "path_segment":
		return fmt.Sprintf("%s may contain only letters, digits, dots, dashes and underscores", fe.Field())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s must have %s length %s", fe.Field(), fe.Tag(), fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be numeric", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
