package types

import (
	"bytes"
	"fmt"
	"strings"
)

// Tuple is an ordered sequence of fields matching a schema, plus an optional
// record id locating it on a heap page.
type Tuple struct {
	desc   *TupleDesc
	fields []Field
	rid    *RecordID
}

func NewTuple(desc *TupleDesc) *Tuple {
	return &Tuple{
		desc:   desc,
		fields: make([]Field, desc.NumFields()),
	}
}

func (t *Tuple) TupleDesc() *TupleDesc {
	return t.desc
}

func (t *Tuple) Field(i int) (Field, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, fmt.Errorf("%w: field %d of %d", ErrNotFound, i, len(t.fields))
	}
	return t.fields[i], nil
}

func (t *Tuple) SetField(i int, f Field) error {
	if i < 0 || i >= len(t.fields) {
		return fmt.Errorf("%w: field %d of %d", ErrNotFound, i, len(t.fields))
	}
	ft, err := t.desc.FieldType(i)
	if err != nil {
		return err
	}
	if f.Type() != ft {
		return fmt.Errorf("simpledb: field %d: got %s; want %s", i, f.Type(), ft)
	}
	t.fields[i] = f
	return nil
}

func (t *Tuple) RecordID() *RecordID {
	return t.rid
}

func (t *Tuple) SetRecordID(rid *RecordID) {
	t.rid = rid
}

// Encode appends the on disk encoding of the tuple, field by field in schema
// order, to buf.
func (t *Tuple) Encode(buf *bytes.Buffer) error {
	for i, f := range t.fields {
		if f == nil {
			return fmt.Errorf("simpledb: field %d is not set", i)
		}
		err := f.Encode(buf)
		if err != nil {
			return err
		}
	}
	return nil
}

// DecodeTuple reads one tuple of the given schema from r.
func DecodeTuple(desc *TupleDesc, r *bytes.Reader) (*Tuple, error) {
	t := NewTuple(desc)
	for i := 0; i < desc.NumFields(); i++ {
		ft, err := desc.FieldType(i)
		if err != nil {
			return nil, err
		}
		f, err := DecodeField(ft, r)
		if err != nil {
			return nil, err
		}
		t.fields[i] = f
	}
	return t, nil
}

// EqualFields reports whether two tuples hold the same field values. Record
// ids do not participate.
func (t *Tuple) EqualFields(other *Tuple) bool {
	if other == nil || len(t.fields) != len(other.fields) {
		return false
	}
	for i := range t.fields {
		if t.fields[i] != other.fields[i] {
			return false
		}
	}
	return true
}

func (t *Tuple) String() string {
	var sb strings.Builder
	for i, f := range t.fields {
		if i > 0 {
			sb.WriteString("\t")
		}
		if f == nil {
			sb.WriteString("<unset>")
		} else {
			sb.WriteString(f.String())
		}
	}
	return sb.String()
}
