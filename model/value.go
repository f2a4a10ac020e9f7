// Package model defines the data types shared across the adapter runtime:
// the typed Value variant, device/profile schema objects, addressables, and
// the reading/event shapes handed off to the event publisher.
package model

import (
	"fmt"
	"strconv"
)

// ValueType identifies the underlying representation of a Value.
type ValueType string

// The set of supported value types. Binary carries an owned byte buffer;
// all others are Go native numeric/bool/string kinds.
const (
	Bool    ValueType = "Bool"
	UInt8   ValueType = "UInt8"
	UInt16  ValueType = "UInt16"
	UInt32  ValueType = "UInt32"
	UInt64  ValueType = "UInt64"
	Int8    ValueType = "Int8"
	Int16   ValueType = "Int16"
	Int32   ValueType = "Int32"
	Int64   ValueType = "Int64"
	Float32 ValueType = "Float32"
	Float64 ValueType = "Float64"
	String  ValueType = "String"
	Binary  ValueType = "Binary"
)

// IsIntegral reports whether the value type is one of the integral kinds,
// for which mask/shift operations are meaningful.
func (t ValueType) IsIntegral() bool {
	switch t {
	case UInt8, UInt16, UInt32, UInt64, Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// IsSigned reports whether the value type is a signed integral kind.
func (t ValueType) IsSigned() bool {
	switch t {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// IsNumeric reports whether the value type participates in numeric transforms.
func (t ValueType) IsNumeric() bool {
	return t.IsIntegral() || t == Float32 || t == Float64
}

// Value is a discriminated variant over the supported device value types.
//
// Only the field matching Type is meaningful; the others are zero. This
// mirrors the wire shape devices/profiles describe in configuration, where a
// resource declares one type and every reading/write for it uses that type.
type Value struct {
	Type ValueType

	boolVal   bool
	intVal    int64   // backing store for all signed/unsigned integral kinds
	floatVal  float64 // backing store for Float32/Float64
	stringVal string
	binaryVal []byte
}

// NewBool creates a Bool value.
func NewBool(v bool) Value { return Value{Type: Bool, boolVal: v} }

// NewInt creates an integral value of the given type from an int64. The
// caller is responsible for ensuring vt is an integral type.
func NewInt(vt ValueType, v int64) Value { return Value{Type: vt, intVal: v} }

// NewFloat creates a Float32/Float64 value.
func NewFloat(vt ValueType, v float64) Value { return Value{Type: vt, floatVal: v} }

// NewString creates a String value.
func NewString(v string) Value { return Value{Type: String, stringVal: v} }

// NewBinary creates a Binary value. The byte slice is owned by the Value
// from this point on; callers should not mutate it afterwards.
func NewBinary(v []byte) Value { return Value{Type: Binary, binaryVal: v} }

// Bool returns the value as a bool. Only valid when Type == Bool.
func (v Value) Bool() bool { return v.boolVal }

// Int returns the value's integral backing store. Only valid for integral types.
func (v Value) Int() int64 { return v.intVal }

// Float returns the value's float backing store. Only valid for Float32/Float64.
func (v Value) Float() float64 { return v.floatVal }

// StringVal returns the value as a string. Only valid when Type == String.
func (v Value) StringVal() string { return v.stringVal }

// Binary returns the raw byte buffer. Only valid when Type == Binary. The
// returned length is explicit via len() on the slice, per the Binary value's
// contract of carrying an owned buffer with explicit length.
func (v Value) Binary() []byte { return v.binaryVal }

// AsFloat64 normalizes any numeric value to a float64 for use by the
// transform engine, which operates uniformly over numerics regardless of
// their declared width.
func (v Value) AsFloat64() (float64, bool) {
	switch {
	case v.Type.IsIntegral():
		return float64(v.intVal), true
	case v.Type == Float32, v.Type == Float64:
		return v.floatVal, true
	default:
		return 0, false
	}
}

// WithFloat64 returns a copy of v with its numeric backing store replaced by
// f, saturating to the representable range of v.Type for integral kinds.
func (v Value) WithFloat64(f float64) Value {
	switch v.Type {
	case Float32:
		return Value{Type: v.Type, floatVal: float64(float32(f))}
	case Float64:
		return Value{Type: v.Type, floatVal: f}
	default:
		return Value{Type: v.Type, intVal: saturate(v.Type, f)}
	}
}

// saturate converts a float64 into the integral range of vt, clamping on
// overflow rather than wrapping, per the transform engine's overflow policy.
func saturate(vt ValueType, f float64) int64 {
	lo, hi := integralRange(vt)
	if f < float64(lo) {
		return lo
	}
	if f > float64(hi) {
		return hi
	}
	return int64(f)
}

func integralRange(vt ValueType) (lo, hi int64) {
	switch vt {
	case UInt8:
		return 0, 1<<8 - 1
	case UInt16:
		return 0, 1<<16 - 1
	case UInt32:
		return 0, 1<<32 - 1
	case UInt64:
		return 0, 1<<63 - 1 // represented in an int64 backing store
	case Int8:
		return -1 << 7, 1<<7 - 1
	case Int16:
		return -1 << 15, 1<<15 - 1
	case Int32:
		return -1 << 31, 1<<31 - 1
	case Int64:
		return -1 << 63, 1<<63 - 1
	}
	return 0, 0
}

// String renders the value in its canonical string form, as used for
// readings, assertion comparisons, and enumeration mapping lookups.
func (v Value) String() string {
	switch v.Type {
	case Bool:
		return strconv.FormatBool(v.boolVal)
	case Float32:
		return strconv.FormatFloat(v.floatVal, 'f', -1, 32)
	case Float64:
		return strconv.FormatFloat(v.floatVal, 'f', -1, 64)
	case String:
		return v.stringVal
	case Binary:
		return fmt.Sprintf("<binary:%d bytes>", len(v.binaryVal))
	default:
		if v.Type.IsSigned() {
			return strconv.FormatInt(v.intVal, 10)
		}
		return strconv.FormatUint(uint64(v.intVal), 10)
	}
}

// ParseValue parses a string representation of s into a Value of type vt,
// as used when coercing a PUT request body's string values into the target
// resource's declared type.
func ParseValue(vt ValueType, s string) (Value, error) {
	switch vt {
	case Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, fmt.Errorf("invalid bool value %q: %w", s, err)
		}
		return NewBool(b), nil
	case Float32, Float64:
		bits := 64
		if vt == Float32 {
			bits = 32
		}
		f, err := strconv.ParseFloat(s, bits)
		if err != nil {
			return Value{}, fmt.Errorf("invalid %s value %q: %w", vt, s, err)
		}
		return NewFloat(vt, f), nil
	case String:
		return NewString(s), nil
	case Binary:
		return NewBinary([]byte(s)), nil
	default:
		if !vt.IsIntegral() {
			return Value{}, fmt.Errorf("unsupported value type %q", vt)
		}
		if vt.IsSigned() {
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return Value{}, fmt.Errorf("invalid %s value %q: %w", vt, s, err)
			}
			return NewInt(vt, i), nil
		}
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid %s value %q: %w", vt, s, err)
		}
		return NewInt(vt, int64(u)), nil
	}
}
