package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// ValidateStruct runs the `validate` tags of an input struct and maps the
// outcome to the validation error kind.
func ValidateStruct(input interface{}) error {
	err := structValidator.Struct(input)
	if err == nil {
		return nil
	}
	fields := ProcessValidationErrors(err)
	parts := make([]string, 0, len(fields))
	for field, message := range fields {
		parts = append(parts, fmt.Sprintf("%s %s", field, message))
	}
	return NewValidationError(strings.Join(parts, "; "))
}

func ProcessValidationErrors(err error) map[string]string {
	errorsMap := make(map[string]string)
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errorsMap["input"] = err.Error()
		return errorsMap
	}
	for _, fieldErr := range validationErrors {
		switch fieldErr.Tag() {
		case "required":
			errorsMap[fieldErr.Field()] = "is required"
		case "email":
			errorsMap[fieldErr.Field()] = "must be a valid email"
		case "oneof":
			errorsMap[fieldErr.Field()] = "must be one of " + fieldErr.Param()
		case "min":
			errorsMap[fieldErr.Field()] = "must be at least " + fieldErr.Param()
		case "max":
			errorsMap[fieldErr.Field()] = "must be at most " + fieldErr.Param()
		default:
			errorsMap[fieldErr.Field()] = "is invalid"
		}
	}
	return errorsMap
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	result := make([]T, 0, len(slice))
	for _, item := range slice {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	return result
}

// SubtractSlice returns the members of slice not present in remove, keeping order.
func SubtractSlice[T comparable](slice []T, remove []T) []T {
	drop := make(map[T]struct{}, len(remove))
	for _, item := range remove {
		drop[item] = struct{}{}
	}
	result := make([]T, 0, len(slice))
	for _, item := range slice {
		if _, ok := drop[item]; ok {
			continue
		}
		result = append(result, item)
	}
	return result
}

func ContainsSlice[T comparable](slice []T, target T) bool {
	for _, item := range slice {
		if item == target {
			return true
		}
	}
	return false
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	var zero T
	if len(defaults) > 0 {
		return defaults[0]
	}
	return zero
}
