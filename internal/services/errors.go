package services

import (
	"errors"
	"fmt"
)

// ValidationError is user-correctable input; Field names the rejected form field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// AuthorizationError means the caller is known but not allowed to act on the entity.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return e.Reason
}

// ConflictError means the request would break a uniqueness or capacity rule.
// Count carries the blocking quantity where one exists (e.g. bookings on a ride).
type ConflictError struct {
	Reason string
	Count  int64
}

func (e *ConflictError) Error() string {
	return e.Reason
}

var ErrInvalidCredentials = errors.New("invalid credentials")

func newValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func newNotFound(entity string, id interface{}) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func newForbidden(reason string) error {
	return &AuthorizationError{Reason: reason}
}

func newConflict(reason string) error {
	return &ConflictError{Reason: reason}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
