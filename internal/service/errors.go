package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var (
	// ErrStudentNotFound indicates the student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrDuplicateStudent indicates the student id or email is already registered.
	ErrDuplicateStudent = errors.New("student with this id or email already exists")
	// ErrInvalidField indicates an update targeted an attribute that cannot be changed.
	ErrInvalidField = errors.New("invalid field")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrStorageUnavailable wraps any failure of the underlying store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Error codes reported alongside failed tool results.
const (
	CodeNotFound           = "NotFound"
	CodeDuplicateKey       = "DuplicateKey"
	CodeInvalidField       = "InvalidField"
	CodeValidationError    = "ValidationError"
	CodeStorageUnavailable = "StorageUnavailable"
	CodeInternal           = "InternalError"
)

// ErrorCode classifies err into the error taxonomy.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStudentNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDuplicateStudent):
		return CodeDuplicateKey
	case errors.Is(err, ErrInvalidField):
		return CodeInvalidField
	case errors.Is(err, ErrValidation), isValidationError(err):
		return CodeValidationError
	case errors.Is(err, ErrStorageUnavailable):
		return CodeStorageUnavailable
	default:
		return CodeInternal
	}
}

// translateStoreError maps persistence errors onto the service taxonomy.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStudentNotFound),
		errors.Is(err, ErrDuplicateStudent),
		errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrStorageUnavailable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrStudentNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateStudent
	default:
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
}

func validationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, describeFieldError(fieldErr))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(messages, "; "))
}

func describeFieldError(fieldErr validator.FieldError) string {
	field := fieldErr.Field()
	switch fieldErr.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fieldErr.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fieldErr.Tag())
	}
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// NewValidator builds the shared validator. Field names in validation errors are
// reported using their JSON names.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}
