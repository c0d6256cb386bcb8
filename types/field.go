package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Op is a predicate comparison operator.
type Op int

const (
	Equals Op = iota
	LessThan
	GreaterThan
	LessThanOrEq
	GreaterThanOrEq
	Like
	NotEquals
)

func (op Op) String() string {
	switch op {
	case Equals:
		return "="
	case LessThan:
		return "<"
	case GreaterThan:
		return ">"
	case LessThanOrEq:
		return "<="
	case GreaterThanOrEq:
		return ">="
	case Like:
		return "like"
	case NotEquals:
		return "!="
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// ParseOp converts the textual form of an operator back to an Op.
func ParseOp(s string) (Op, error) {
	switch s {
	case "=", "==":
		return Equals, nil
	case "<":
		return LessThan, nil
	case ">":
		return GreaterThan, nil
	case "<=":
		return LessThanOrEq, nil
	case ">=":
		return GreaterThanOrEq, nil
	case "like":
		return Like, nil
	case "!=", "<>":
		return NotEquals, nil
	default:
		return 0, fmt.Errorf("types: %s is not an operator", s)
	}
}

// Field is one immutable value in a tuple. Fields are value types and may be
// used as map keys.
type Field interface {
	Type() Type
	Compare(op Op, other Field) (bool, error)
	Encode(buf *bytes.Buffer) error
	String() string
}

type IntField struct {
	Val int32
}

func (f IntField) Type() Type {
	return IntType
}

func (f IntField) Compare(op Op, other Field) (bool, error) {
	o, ok := other.(IntField)
	if !ok {
		return false, fmt.Errorf("types: cannot compare int to %s", other.Type())
	}
	switch op {
	case Equals, Like:
		return f.Val == o.Val, nil
	case LessThan:
		return f.Val < o.Val, nil
	case GreaterThan:
		return f.Val > o.Val, nil
	case LessThanOrEq:
		return f.Val <= o.Val, nil
	case GreaterThanOrEq:
		return f.Val >= o.Val, nil
	case NotEquals:
		return f.Val != o.Val, nil
	default:
		return false, fmt.Errorf("types: bad operator: %s", op)
	}
}

func (f IntField) Encode(buf *bytes.Buffer) error {
	return binary.Write(buf, binary.BigEndian, f.Val)
}

func (f IntField) String() string {
	return fmt.Sprintf("%d", f.Val)
}

type StringField struct {
	Val string
}

func NewStringField(s string) (StringField, error) {
	if len(s) > StringLength {
		return StringField{}, fmt.Errorf("types: string longer than %d bytes: %q",
			StringLength, s)
	}
	return StringField{Val: s}, nil
}

func (f StringField) Type() Type {
	return StringType
}

func (f StringField) Compare(op Op, other Field) (bool, error) {
	o, ok := other.(StringField)
	if !ok {
		return false, fmt.Errorf("types: cannot compare string to %s", other.Type())
	}
	switch op {
	case Equals:
		return f.Val == o.Val, nil
	case LessThan:
		return f.Val < o.Val, nil
	case GreaterThan:
		return f.Val > o.Val, nil
	case LessThanOrEq:
		return f.Val <= o.Val, nil
	case GreaterThanOrEq:
		return f.Val >= o.Val, nil
	case Like:
		return strings.Contains(f.Val, o.Val), nil
	case NotEquals:
		return f.Val != o.Val, nil
	default:
		return false, fmt.Errorf("types: bad operator: %s", op)
	}
}

func (f StringField) Encode(buf *bytes.Buffer) error {
	if len(f.Val) > StringLength {
		return fmt.Errorf("types: string longer than %d bytes: %q", StringLength, f.Val)
	}
	err := binary.Write(buf, binary.BigEndian, int32(len(f.Val)))
	if err != nil {
		return err
	}
	pad := make([]byte, StringLength)
	copy(pad, f.Val)
	_, err = buf.Write(pad)
	return err
}

func (f StringField) String() string {
	return f.Val
}

// DecodeField reads one field of type t from r using the on disk encoding.
func DecodeField(t Type, r io.Reader) (Field, error) {
	switch t {
	case IntType:
		var v int32
		err := binary.Read(r, binary.BigEndian, &v)
		if err != nil {
			return nil, err
		}
		return IntField{Val: v}, nil
	case StringType:
		var n int32
		err := binary.Read(r, binary.BigEndian, &n)
		if err != nil {
			return nil, err
		}
		if n < 0 || n > StringLength {
			return nil, fmt.Errorf("types: bad string length: %d", n)
		}
		b := make([]byte, StringLength)
		_, err = io.ReadFull(r, b)
		if err != nil {
			return nil, err
		}
		return StringField{Val: string(b[:n])}, nil
	default:
		return nil, fmt.Errorf("types: unknown type: %d", t)
	}
}
