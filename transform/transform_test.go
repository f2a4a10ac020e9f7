package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldlink/adapter-sdk/errors"
	"github.com/fieldlink/adapter-sdk/model"
)

func ptrU64(v uint64) *uint64 { return &v }
func ptrInt(v int) *int       { return &v }
func ptrF64(v float64) *float64 { return &v }

func TestForwardScaleOffset(t *testing.T) {
	prop := model.PropertyDescriptor{Type: model.Float32, Scale: 0.1, Offset: -40}
	v := model.NewInt(model.Int32, 1150) // raw sensor counts

	out, str, err := Forward(v, prop, nil)
	require.NoError(t, err)
	f, _ := out.AsFloat64()
	assert.InDelta(t, 75, f, 0.001)
	assert.Equal(t, "75", str)
}

func TestForwardMaskAndShift(t *testing.T) {
	prop := model.PropertyDescriptor{
		Type:  model.UInt16,
		Mask:  ptrU64(0x0FF0),
		Shift: ptrInt(4),
	}
	v := model.NewInt(model.UInt16, 0xABCD)

	out, _, err := Forward(v, prop, nil)
	require.NoError(t, err)
	// mask: 0xABCD & 0x0FF0 = 0x0BC0; shift right 4: 0x0BC
	assert.Equal(t, int64(0x0BC), out.Int())
}

func TestForwardAssertionFailure(t *testing.T) {
	prop := model.PropertyDescriptor{Type: model.Int32, Assertion: "99"}
	v := model.NewInt(model.Int32, 5)

	_, _, err := Forward(v, prop, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindAssertionFailed))
}

func TestForwardEnumMapping(t *testing.T) {
	prop := model.PropertyDescriptor{Type: model.Int32}
	v := model.NewInt(model.Int32, 1)

	_, str, err := Forward(v, prop, map[string]string{"1": "ON", "0": "OFF"})
	require.NoError(t, err)
	assert.Equal(t, "ON", str)
}

func TestInverseUndoesForward(t *testing.T) {
	prop := model.PropertyDescriptor{Type: model.Float32, Scale: 0.1, Offset: -40}
	raw := model.NewInt(model.Int32, 1150)

	forward, _, err := Forward(raw, prop, nil)
	require.NoError(t, err)

	back, err := Inverse(forward, prop)
	require.NoError(t, err)
	f, _ := back.AsFloat64()
	assert.InDelta(t, 1150, f, 0.001)
}

func TestInverseBaseNonPositive(t *testing.T) {
	prop := model.PropertyDescriptor{Type: model.Float64, Base: 10}
	v := model.NewFloat(model.Float64, -1)

	_, err := Inverse(v, prop)
	assert.Error(t, err)
}

func TestValidateBounds(t *testing.T) {
	prop := model.PropertyDescriptor{Type: model.Int32, Minimum: ptrF64(0), Maximum: ptrF64(100)}

	assert.NoError(t, ValidateBounds(model.NewInt(model.Int32, 50), prop))

	err := ValidateBounds(model.NewInt(model.Int32, -1), prop)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindInvalidArg))

	err = ValidateBounds(model.NewInt(model.Int32, 101), prop)
	require.Error(t, err)
}
