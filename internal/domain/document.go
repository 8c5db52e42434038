package domain

import (
	"fmt"
	"strings"
)

// Category is a named, ordered group of entries.
type Category struct {
	Name    string
	Entries []Entry
}

// Document is the in-memory form of the commands file.
//
// Category order and entry order are significant and survive every
// serialize/parse round trip. Category names are unique and case-sensitive.
type Document struct {
	categories []*Category
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{}
}

// AppendCategory adds a category at the end of the document.
// Used by parsers; fails if the name is blank or already present.
func (d *Document) AppendCategory(name string, entries ...Entry) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyCategory
	}
	if d.find(name) >= 0 {
		return fmt.Errorf("duplicate category %q", name)
	}
	c := &Category{Name: name, Entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		c.Entries = append(c.Entries, e.Clone())
	}
	d.categories = append(d.categories, c)
	return nil
}

// Categories returns the category names in document order.
func (d *Document) Categories() []string {
	names := make([]string, 0, len(d.categories))
	for _, c := range d.categories {
		names = append(names, c.Name)
	}
	return names
}

// Category returns a copy of the entries of a category.
func (d *Document) Category(name string) ([]Entry, bool) {
	i := d.find(name)
	if i < 0 {
		return nil, false
	}
	src := d.categories[i].Entries
	out := make([]Entry, 0, len(src))
	for _, e := range src {
		out = append(out, e.Clone())
	}
	return out, true
}

// Entry returns a copy of the entry at pos.
func (d *Document) Entry(pos Position) (Entry, error) {
	c, err := d.category(pos.Category)
	if err != nil {
		return Entry{}, err
	}
	if pos.Index < 0 || pos.Index >= len(c.Entries) {
		return Entry{}, outOfRange(pos, len(c.Entries))
	}
	return c.Entries[pos.Index].Clone(), nil
}

// Len returns the total number of entries across all categories.
func (d *Document) Len() int {
	n := 0
	for _, c := range d.categories {
		n += len(c.Entries)
	}
	return n
}

// Walk calls fn for every entry in document order until fn returns false.
func (d *Document) Walk(fn func(pos Position, e Entry) bool) {
	for _, c := range d.categories {
		for i, e := range c.Entries {
			if !fn(Position{Category: c.Name, Index: i}, e) {
				return
			}
		}
	}
}

// InsertEntry inserts e at index position of category, creating the
// category at the end of the document when it does not exist yet.
// position == len(category) appends.
func (d *Document) InsertEntry(category string, position int, e Entry) error {
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	i := d.find(category)
	size := 0
	if i >= 0 {
		size = len(d.categories[i].Entries)
	}
	if position < 0 || position > size {
		return outOfRange(Position{Category: category, Index: position}, size)
	}
	if i < 0 {
		d.categories = append(d.categories, &Category{Name: category})
		i = len(d.categories) - 1
	}
	d.categories[i].Entries = insertAt(d.categories[i].Entries, position, e.Clone())
	return nil
}

// RemoveEntry removes and returns the entry at pos.
// An emptied category is left in place; see PruneCategory.
func (d *Document) RemoveEntry(pos Position) (Entry, error) {
	c, err := d.category(pos.Category)
	if err != nil {
		return Entry{}, err
	}
	if pos.Index < 0 || pos.Index >= len(c.Entries) {
		return Entry{}, outOfRange(pos, len(c.Entries))
	}
	e := c.Entries[pos.Index]
	c.Entries = append(c.Entries[:pos.Index], c.Entries[pos.Index+1:]...)
	return e, nil
}

// MoveEntry moves the entry at from so that it ends up at index to.Index
// of category to.Category.
//
// to.Index is the final index of the moved entry: within one category the
// valid range is [0, len-1], across categories it is [0, len(dest)].
// A missing destination category is created. Nothing is pruned.
func (d *Document) MoveEntry(from, to Position) error {
	src, err := d.category(from.Category)
	if err != nil {
		return err
	}
	if from.Index < 0 || from.Index >= len(src.Entries) {
		return outOfRange(from, len(src.Entries))
	}
	if strings.TrimSpace(to.Category) == "" {
		return ErrEmptyCategory
	}

	if from.Category == to.Category {
		if to.Index < 0 || to.Index >= len(src.Entries) {
			return outOfRange(to, len(src.Entries))
		}
		if from.Index == to.Index {
			return nil
		}
		e := src.Entries[from.Index]
		src.Entries = append(src.Entries[:from.Index], src.Entries[from.Index+1:]...)
		src.Entries = insertAt(src.Entries, to.Index, e)
		return nil
	}

	destSize := 0
	if di := d.find(to.Category); di >= 0 {
		destSize = len(d.categories[di].Entries)
	}
	if to.Index < 0 || to.Index > destSize {
		return outOfRange(to, destSize)
	}

	e := src.Entries[from.Index]
	src.Entries = append(src.Entries[:from.Index], src.Entries[from.Index+1:]...)
	// Destination exists or is created; bounds were checked above.
	return d.InsertEntry(to.Category, to.Index, e)
}

// SetField assigns value to one field of the entry at pos.
// For FieldAliases, value is a comma-separated list (see ParseAliases).
func (d *Document) SetField(pos Position, field Field, value string) error {
	c, err := d.category(pos.Category)
	if err != nil {
		return err
	}
	if pos.Index < 0 || pos.Index >= len(c.Entries) {
		return outOfRange(pos, len(c.Entries))
	}
	e := &c.Entries[pos.Index]
	switch field {
	case FieldDisplayName:
		e.DisplayName = value
	case FieldLink:
		e.Link = value
	case FieldAliases:
		e.Aliases = ParseAliases(value)
	default:
		return &FieldError{Name: field.String()}
	}
	return nil
}

// PruneCategory removes the category if it holds no entries.
// It reports whether the category was removed.
func (d *Document) PruneCategory(name string) bool {
	i := d.find(name)
	if i < 0 || len(d.categories[i].Entries) > 0 {
		return false
	}
	d.categories = append(d.categories[:i], d.categories[i+1:]...)
	return true
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{categories: make([]*Category, 0, len(d.categories))}
	for _, c := range d.categories {
		cc := &Category{Name: c.Name, Entries: make([]Entry, 0, len(c.Entries))}
		for _, e := range c.Entries {
			cc.Entries = append(cc.Entries, e.Clone())
		}
		out.categories = append(out.categories, cc)
	}
	return out
}

// Equal reports whether two documents are structurally identical,
// order included.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.categories) != len(o.categories) {
		return false
	}
	for i, c := range d.categories {
		oc := o.categories[i]
		if c.Name != oc.Name || len(c.Entries) != len(oc.Entries) {
			return false
		}
		for j := range c.Entries {
			if !c.Entries[j].Equal(oc.Entries[j]) {
				return false
			}
		}
	}
	return true
}

func (d *Document) find(name string) int {
	for i, c := range d.categories {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (d *Document) category(name string) (*Category, error) {
	i := d.find(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrCategoryNotFound, name)
	}
	return d.categories[i], nil
}

func outOfRange(pos Position, size int) error {
	return fmt.Errorf("%w: %q[%d] (size %d)", ErrPositionOutOfRange, pos.Category, pos.Index, size)
}

func insertAt(entries []Entry, i int, e Entry) []Entry {
	entries = append(entries, Entry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	return entries
}
