package domain

import (
	"errors"
	"strings"
)

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrProductNameTaken      = errors.New("product name already exists")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")

	// ErrStorageUnavailable marks failures of the persistence layer itself.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Violation is a field-scoped reason an admission attempt is rejected
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a candidate product fails admission
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
