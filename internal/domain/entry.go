package domain

import "strings"

// Entry represents a single mapped command.
//
// An Entry has no identity of its own: it is addressed by its Position
// (category + index) at the moment an operation runs.
type Entry struct {
	// DisplayName is the human readable label shown in replies.
	// Example: "Phone (2)"
	DisplayName string `yaml:"display_name" json:"display_name" validate:"required"`

	// Aliases are the lookup keys, stored trimmed and lower-cased.
	// Example: ["phone 2", "p2"]
	Aliases []string `yaml:"aliases" json:"aliases" validate:"min=1,dive,required"`

	// Link is the absolute URL returned for any alias.
	// Example: https://nothing.tech/phone-2
	Link string `yaml:"link" json:"link" validate:"required,url"`
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	c := e
	if e.Aliases != nil {
		c.Aliases = append([]string(nil), e.Aliases...)
	}
	return c
}

// Equal reports whether two entries are structurally identical.
func (e Entry) Equal(o Entry) bool {
	if e.DisplayName != o.DisplayName || e.Link != o.Link || len(e.Aliases) != len(o.Aliases) {
		return false
	}
	for i := range e.Aliases {
		if e.Aliases[i] != o.Aliases[i] {
			return false
		}
	}
	return true
}

// HasAlias reports whether the entry holds alias (case-insensitive).
func (e Entry) HasAlias(alias string) bool {
	alias = NormalizeAlias(alias)
	for _, a := range e.Aliases {
		if NormalizeAlias(a) == alias {
			return true
		}
	}
	return false
}

// Position addresses an entry by category name and index within it.
type Position struct {
	Category string `json:"category"`
	Index    int    `json:"position"`
}

// Field names an editable entry field.
type Field int

const (
	FieldDisplayName Field = iota
	FieldAliases
	FieldLink
)

// String returns the wire name of the field.
func (f Field) String() string {
	switch f {
	case FieldDisplayName:
		return "display_name"
	case FieldAliases:
		return "aliases"
	case FieldLink:
		return "link"
	default:
		return "unknown"
	}
}

// ParseField maps a wire name ("display_name", "aliases", "link") to a Field.
func ParseField(name string) (Field, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "display_name":
		return FieldDisplayName, nil
	case "aliases":
		return FieldAliases, nil
	case "link":
		return FieldLink, nil
	default:
		return 0, &FieldError{Name: name}
	}
}
