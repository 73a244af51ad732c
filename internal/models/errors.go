package models

import (
	"errors"
	"fmt"
)

// ValidationError represents malformed or missing input. It is always raised before
// any store mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ErrInvalidField creates a validation error for a named field
func ErrInvalidField(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError means the referenced entity does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// CapacityError means the travel option cannot supply the requested seats
type CapacityError struct {
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough seats available: requested %d, available %d", e.Requested, e.Available)
}

// AuthorizationError means the caller does not own the resource
type AuthorizationError struct {
	Resource string
	ID       string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized to access this %s", e.Resource)
}

// InvalidStateError means the operation is not valid for the entity's current state
type InvalidStateError struct {
	Resource string
	State    string
	Message  string
}

func (e *InvalidStateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is already %s", e.Resource, e.State)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsCapacity(err error) bool {
	var target *CapacityError
	return errors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

func IsInvalidState(err error) bool {
	var target *InvalidStateError
	return errors.As(err, &target)
}
