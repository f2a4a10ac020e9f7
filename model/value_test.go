package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueTypeClassification(t *testing.T) {
	assert.True(t, UInt8.IsIntegral())
	assert.False(t, UInt8.IsSigned())
	assert.True(t, Int32.IsIntegral())
	assert.True(t, Int32.IsSigned())
	assert.False(t, Float32.IsIntegral())
	assert.True(t, Float32.IsNumeric())
	assert.False(t, String.IsNumeric())
	assert.False(t, Bool.IsIntegral())
}

func TestValueConstructorsAndAccessors(t *testing.T) {
	b := NewBool(true)
	assert.Equal(t, Bool, b.Type)
	assert.True(t, b.Bool())
	assert.Equal(t, "true", b.String())

	i := NewInt(Int16, -12)
	assert.Equal(t, int64(-12), i.Int())
	assert.Equal(t, "-12", i.String())

	u := NewInt(UInt16, 12)
	assert.Equal(t, "12", u.String())

	f := NewFloat(Float64, 3.5)
	assert.Equal(t, 3.5, f.Float())
	assert.Equal(t, "3.5", f.String())

	s := NewString("hello")
	assert.Equal(t, "hello", s.StringVal())
	assert.Equal(t, "hello", s.String())

	bin := NewBinary([]byte{1, 2, 3})
	assert.Equal(t, []byte{1, 2, 3}, bin.Binary())
	assert.Equal(t, "<binary:3 bytes>", bin.String())
}

func TestAsFloat64(t *testing.T) {
	f, ok := NewInt(Int32, 7).AsFloat64()
	assert.True(t, ok)
	assert.Equal(t, float64(7), f)

	f, ok = NewFloat(Float32, 1.25).AsFloat64()
	assert.True(t, ok)
	assert.Equal(t, 1.25, f)

	_, ok = NewString("x").AsFloat64()
	assert.False(t, ok)
}

func TestWithFloat64Saturates(t *testing.T) {
	v := NewInt(UInt8, 0).WithFloat64(1000)
	assert.Equal(t, int64(255), v.Int())

	v = NewInt(Int8, 0).WithFloat64(-1000)
	assert.Equal(t, int64(-128), v.Int())

	v = NewInt(Int8, 0).WithFloat64(10)
	assert.Equal(t, int64(10), v.Int())

	v = NewFloat(Float64, 0).WithFloat64(12.75)
	assert.Equal(t, 12.75, v.Float())
}

func TestParseValueRoundTrip(t *testing.T) {
	cases := []struct {
		vt  ValueType
		in  string
		out string
	}{
		{Bool, "true", "true"},
		{Int32, "-42", "-42"},
		{UInt32, "42", "42"},
		{Float32, "1.5", "1.5"},
		{String, "hello", "hello"},
	}
	for _, c := range cases {
		v, err := ParseValue(c.vt, c.in)
		require.NoError(t, err)
		assert.Equal(t, c.out, v.String())
	}
}

func TestParseValueErrors(t *testing.T) {
	_, err := ParseValue(Bool, "not-a-bool")
	assert.Error(t, err)

	_, err = ParseValue(Int32, "not-an-int")
	assert.Error(t, err)

	_, err = ParseValue(UInt32, "-1")
	assert.Error(t, err)
}
