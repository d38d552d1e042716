package tools

import (
	"errors"
	"fmt"
	"strings"
)

// ErrToolNotFound is matched by errors.Is for every *NotFoundError.
var ErrToolNotFound = errors.New("tool not found")

// NotFoundError reports a lookup of an unregistered (or unavailable) tool.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("tool %s not found", e.Name) }

func (e *NotFoundError) Unwrap() error { return ErrToolNotFound }

// ValidationError reports arguments that do not satisfy a tool's schema.
type ValidationError struct {
	Tool     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Problems, "; "))
}

// PanicError reports a tool function that panicked during Dispatch.
type PanicError struct {
	Tool  string
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("tool %s panicked: %v", e.Tool, e.Value) }
