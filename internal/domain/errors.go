package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCategoryNotFound indicates the addressed category does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrPositionOutOfRange indicates an entry index outside the category bounds.
	ErrPositionOutOfRange = errors.New("position out of range")
	// ErrUnknownField indicates a field name that is not editable.
	ErrUnknownField = errors.New("unknown field")
	// ErrEmptyCategory indicates a blank category name.
	ErrEmptyCategory = errors.New("category name is empty")
	// ErrInvalid is matched by every *ValidationError.
	ErrInvalid = errors.New("document is invalid")
)

// FieldError reports an unknown field name.
type FieldError struct {
	Name string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownField, e.Name)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// Violation is one schema rule broken by one entry.
type Violation struct {
	Category    string `json:"category"`
	Index       int    `json:"position"`
	DisplayName string `json:"display_name"`
	Field       string `json:"field"`
	Reason      string `json:"reason"`
}

func (v Violation) String() string {
	name := v.DisplayName
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("%s[%d] %q: %s %s", v.Category, v.Index, name, v.Field, v.Reason)
}

// ValidationError carries every violation found in a single pass.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "validation failed: " + e.Violations[0].String()
	}
	lines := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		lines = append(lines, "  - "+v.String())
	}
	return fmt.Sprintf("validation failed with %d problems:\n%s", len(e.Violations), strings.Join(lines, "\n"))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Holder identifies an entry holding an alias.
type Holder struct {
	Category    string `json:"category"`
	Index       int    `json:"position"`
	DisplayName string `json:"display_name"`
}

// Collision is an alias requested for a new entry that an existing entry already holds.
type Collision struct {
	Alias string `json:"alias"`
	Holder
}

func (c Collision) String() string {
	return fmt.Sprintf("alias %q already used by %q in %q", c.Alias, c.DisplayName, c.Category)
}

// Duplicate is an alias held by more than one entry of the document.
type Duplicate struct {
	Alias   string   `json:"alias"`
	Holders []Holder `json:"holders"`
}

func (d Duplicate) String() string {
	names := make([]string, 0, len(d.Holders))
	for _, h := range d.Holders {
		names = append(names, fmt.Sprintf("%q (%s)", h.DisplayName, h.Category))
	}
	return fmt.Sprintf("alias %q is used by %s", d.Alias, strings.Join(names, ", "))
}
