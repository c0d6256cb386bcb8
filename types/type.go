package types

import "fmt"

// StringLength is the fixed number of bytes reserved for the payload of a
// string field on disk. Strings longer than this are rejected.
const StringLength = 128

type Type int

const (
	IntType Type = iota + 1
	StringType
)

// Length returns the number of bytes a field of this type occupies on disk.
// Integers are 4 byte big-endian; strings are a 4 byte big-endian length
// followed by StringLength bytes of zero padded UTF-8.
func (t Type) Length() int {
	switch t {
	case IntType:
		return 4
	case StringType:
		return 4 + StringLength
	default:
		panic(fmt.Sprintf("types: unknown type: %d", t))
	}
}

func (t Type) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}
