package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline.
var (
	// ErrUnknownField means a template references a fact field that does not
	// exist in the FactModel schema. This is a configuration bug, not bad
	// input, and is never retried.
	ErrUnknownField = errors.New("fact field not in schema")

	// ErrUnknownSection means a requested section id has no registered
	// template.
	ErrUnknownSection = errors.New("no template registered for section")
)

// MissingFactError reports an input field a template needs but the fact
// source did not deliver. Fatal for the affected section; sibling sections
// are unaffected.
type MissingFactError struct {
	Field string
}

func (e *MissingFactError) Error() string {
	return fmt.Sprintf("required fact %q is missing from the input", e.Field)
}

// TemplateMismatchError wraps ErrUnknownField with the template that carries
// the bad reference.
type TemplateMismatchError struct {
	SectionID string
	Field     string
}

func (e *TemplateMismatchError) Error() string {
	return fmt.Sprintf("template %s references unknown fact field %q", e.SectionID, e.Field)
}

func (e *TemplateMismatchError) Unwrap() error { return ErrUnknownField }
