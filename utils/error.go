package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure for the boundary. Visibility failures are
// reported as not_found, never forbidden, so unauthorized callers cannot
// confirm an entity exists.
type ErrorKind string

const (
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindNotFound      ErrorKind = "not_found"
	ErrorKindForbidden     ErrorKind = "forbidden"
	ErrorKindAlreadyExists ErrorKind = "already_exists"
	ErrorKindInternal      ErrorKind = "internal"
	ErrorKindBadData       ErrorKind = "bad_data"
)

type AppError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// InvalidIds lists every offending identifier when a candidate-list
	// validation fails (sharing candidates, unshare targets).
	InvalidIds []string `json:"invalid_ids,omitempty"`
}

func (e *AppError) Error() string {
	if len(e.InvalidIds) > 0 {
		return fmt.Sprintf("%s: %s [invalid ids: %s]", e.Kind, e.Message, strings.Join(e.InvalidIds, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

var ErrorRecordNotFound = &AppError{Kind: ErrorKindNotFound, Message: "record not found"}

func NewValidationError(message string, invalidIds ...string) *AppError {
	return &AppError{Kind: ErrorKindValidation, Message: message, InvalidIds: invalidIds}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: ErrorKindNotFound, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: ErrorKindForbidden, Message: message}
}

func NewAlreadyExistsError(message string) *AppError {
	return &AppError{Kind: ErrorKindAlreadyExists, Message: message}
}

func NewInternalError(message string) *AppError {
	return &AppError{Kind: ErrorKindInternal, Message: message}
}

func NewBadDataError(message string) *AppError {
	return &AppError{Kind: ErrorKindBadData, Message: message}
}

func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

func IsNotFound(err error) bool      { return IsKind(err, ErrorKindNotFound) }
func IsValidation(err error) bool    { return IsKind(err, ErrorKindValidation) }
func IsForbidden(err error) bool     { return IsKind(err, ErrorKindForbidden) }
func IsAlreadyExists(err error) bool { return IsKind(err, ErrorKindAlreadyExists) }
func IsInternal(err error) bool      { return IsKind(err, ErrorKindInternal) }
func IsBadData(err error) bool       { return IsKind(err, ErrorKindBadData) }
