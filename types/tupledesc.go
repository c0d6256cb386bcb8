package types

import (
	"fmt"
	"strings"
)

// TDItem is one column of a schema: a type and an optional name.
type TDItem struct {
	Type Type
	Name string
}

// TupleDesc describes the schema of a tuple as an ordered sequence of typed,
// optionally named fields. A TupleDesc has at least one field.
type TupleDesc struct {
	items []TDItem
}

// NewTupleDesc creates a schema from parallel type and name slices. names may
// be nil for anonymous fields.
func NewTupleDesc(fieldTypes []Type, names []string) (*TupleDesc, error) {
	if len(fieldTypes) == 0 {
		return nil, fmt.Errorf("simpledb: schema must have at least one field")
	}
	if names != nil && len(names) != len(fieldTypes) {
		return nil, fmt.Errorf("simpledb: got %d names for %d fields",
			len(names), len(fieldTypes))
	}

	items := make([]TDItem, len(fieldTypes))
	for i, t := range fieldTypes {
		items[i].Type = t
		if names != nil {
			items[i].Name = names[i]
		}
	}
	return &TupleDesc{items: items}, nil
}

func (td *TupleDesc) NumFields() int {
	return len(td.items)
}

func (td *TupleDesc) FieldType(i int) (Type, error) {
	if i < 0 || i >= len(td.items) {
		return 0, fmt.Errorf("%w: field %d of %d", ErrNotFound, i, len(td.items))
	}
	return td.items[i].Type, nil
}

func (td *TupleDesc) FieldName(i int) (string, error) {
	if i < 0 || i >= len(td.items) {
		return "", fmt.Errorf("%w: field %d of %d", ErrNotFound, i, len(td.items))
	}
	return td.items[i].Name, nil
}

// NameToIndex returns the index of the first field with the given name.
func (td *TupleDesc) NameToIndex(name string) (int, error) {
	for i, item := range td.items {
		if item.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: field %q", ErrNotFound, name)
}

// Size returns the number of bytes one tuple of this schema occupies on disk.
func (td *TupleDesc) Size() int {
	var sz int
	for _, item := range td.items {
		sz += item.Type.Length()
	}
	return sz
}

// Merge concatenates two schemas: the fields of a followed by the fields of
// b. Merge is associative in the field sequence.
func Merge(a, b *TupleDesc) *TupleDesc {
	items := make([]TDItem, 0, len(a.items)+len(b.items))
	items = append(items, a.items...)
	items = append(items, b.items...)
	return &TupleDesc{items: items}
}

// Equals compares type sequences only; field names do not participate.
func (td *TupleDesc) Equals(other *TupleDesc) bool {
	if other == nil || len(td.items) != len(other.items) {
		return false
	}
	for i := range td.items {
		if td.items[i].Type != other.items[i].Type {
			return false
		}
	}
	return true
}

func (td *TupleDesc) String() string {
	var sb strings.Builder
	for i, item := range td.items {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s(%s)", item.Type, item.Name)
	}
	return sb.String()
}
