package types_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/catamtz3/cse444-simpledb/types"
)

func TestIntFieldCompare(t *testing.T) {
	cases := []struct {
		a, b int32
		op   types.Op
		want bool
	}{
		{1, 1, types.Equals, true},
		{1, 2, types.Equals, false},
		{1, 2, types.LessThan, true},
		{2, 1, types.LessThan, false},
		{2, 1, types.GreaterThan, true},
		{1, 1, types.LessThanOrEq, true},
		{1, 1, types.GreaterThanOrEq, true},
		{1, 2, types.NotEquals, true},
		{1, 1, types.Like, true},
	}
	for _, c := range cases {
		got, err := types.IntField{Val: c.a}.Compare(c.op, types.IntField{Val: c.b})
		require.NoError(t, err)
		require.Equal(t, c.want, got, "%d %s %d", c.a, c.op, c.b)
	}

	_, err := types.IntField{Val: 1}.Compare(types.Equals, types.StringField{Val: "x"})
	require.Error(t, err)
}

func TestStringFieldCompare(t *testing.T) {
	like, err := types.StringField{Val: "database"}.Compare(types.Like,
		types.StringField{Val: "base"})
	require.NoError(t, err)
	require.True(t, like)

	less, err := types.StringField{Val: "abc"}.Compare(types.LessThan,
		types.StringField{Val: "abd"})
	require.NoError(t, err)
	require.True(t, less)
}

func TestStringFieldLength(t *testing.T) {
	_, err := types.NewStringField(strings.Repeat("x", types.StringLength))
	require.NoError(t, err)

	_, err = types.NewStringField(strings.Repeat("x", types.StringLength+1))
	require.Error(t, err)
}

func TestFieldEncoding(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, types.IntField{Val: 0x01020304}.Encode(&buf))
	require.Equal(t, []byte{1, 2, 3, 4}, buf.Bytes())

	f, err := types.DecodeField(types.IntType, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, types.IntField{Val: 0x01020304}, f)

	buf.Reset()
	require.NoError(t, types.StringField{Val: "hi"}.Encode(&buf))
	require.Equal(t, 4+types.StringLength, buf.Len())
	require.Equal(t, []byte{0, 0, 0, 2, 'h', 'i'}, buf.Bytes()[:6])

	f, err = types.DecodeField(types.StringType, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, types.StringField{Val: "hi"}, f)
}

func TestParseOp(t *testing.T) {
	op, err := types.ParseOp("<=")
	require.NoError(t, err)
	require.Equal(t, types.LessThanOrEq, op)

	_, err = types.ParseOp("~")
	require.Error(t, err)
}
