// Package transform implements the per-resource numeric mapping pipeline
// (mask/shift/base/scale/offset/assertion/enumeration) applied to device
// readings and writes.
package transform

import (
	"fmt"
	"math"

	"github.com/fieldlink/adapter-sdk/errors"
	"github.com/fieldlink/adapter-sdk/model"
)

// Forward applies the outgoing (device -> platform) transform pipeline to v,
// per the property descriptor prop and the enumeration mapping of the
// owning ResourceOperation (mapping may be nil). It returns the transformed
// value and its string-mapped representation (mapping applied, if any).
//
// Step order: mask, shift, base, scale, offset, assertion, enum mapping.
func Forward(v model.Value, prop model.PropertyDescriptor, mapping map[string]string) (model.Value, string, error) {
	out := v

	if prop.Mask != nil && v.Type.IsIntegral() {
		out = out.WithFloat64(float64(applyMask(uint64(out.Int()), *prop.Mask)))
	}
	if prop.Shift != nil && out.Type.IsIntegral() {
		out = out.WithFloat64(float64(shiftRight(out, *prop.Shift)))
	}

	if out.Type.IsNumeric() {
		f, _ := out.AsFloat64()

		if prop.Base != 0 {
			f = math.Pow(prop.Base, f)
		}
		if prop.Scale != 0 && prop.Scale != 1 {
			f *= prop.Scale
		}
		if prop.Offset != 0 {
			f += prop.Offset
		}
		out = out.WithFloat64(f)
	}

	strVal := out.String()

	if prop.Assertion != "" {
		if strVal != prop.Assertion {
			return out, strVal, errors.New(errors.KindAssertionFailed,
				"transformed value %q does not match assertion %q", strVal, prop.Assertion)
		}
	}

	if mapping != nil {
		if mapped, ok := mapping[strVal]; ok {
			strVal = mapped
		}
	}

	return out, strVal, nil
}

// Inverse applies the incoming (platform -> device) transform pipeline to v,
// undoing Forward's steps in reverse order: offset, scale, base (log),
// shift-left, mask-invert.
func Inverse(v model.Value, prop model.PropertyDescriptor) (model.Value, error) {
	out := v

	if out.Type.IsNumeric() {
		f, _ := out.AsFloat64()

		if prop.Offset != 0 {
			f -= prop.Offset
		}
		if prop.Scale != 0 && prop.Scale != 1 {
			f /= prop.Scale
		}
		if prop.Base != 0 {
			if f <= 0 {
				return out, fmt.Errorf("cannot invert base transform for non-positive value %v", f)
			}
			f = math.Log(f) / math.Log(prop.Base)
		}
		out = out.WithFloat64(f)
	}

	if prop.Shift != nil && out.Type.IsIntegral() {
		out = out.WithFloat64(float64(shiftLeft(out, *prop.Shift)))
	}
	if prop.Mask != nil && out.Type.IsIntegral() {
		out = out.WithFloat64(float64(applyMask(uint64(out.Int()), invertMask(*prop.Mask))))
	}

	return out, nil
}

// ValidateBounds enforces a PropertyDescriptor's minimum/maximum (inclusive)
// against a numeric value. Non-numeric values and unset bounds are no-ops.
func ValidateBounds(v model.Value, prop model.PropertyDescriptor) error {
	if !v.Type.IsNumeric() {
		return nil
	}
	f, _ := v.AsFloat64()
	if prop.Minimum != nil && f < *prop.Minimum {
		return errors.New(errors.KindInvalidArg, "value %v is below minimum %v", f, *prop.Minimum)
	}
	if prop.Maximum != nil && f > *prop.Maximum {
		return errors.New(errors.KindInvalidArg, "value %v is above maximum %v", f, *prop.Maximum)
	}
	return nil
}

func applyMask(v, mask uint64) uint64 {
	return v & mask
}

func invertMask(mask uint64) uint64 {
	return ^mask
}

// shiftRight performs a signed arithmetic shift for signed integral types and
// a logical shift for unsigned types, per the spec's mask/shift semantics.
func shiftRight(v model.Value, shift int) int64 {
	if v.Type.IsSigned() {
		return v.Int() >> uint(shift)
	}
	return int64(uint64(v.Int()) >> uint(shift))
}

func shiftLeft(v model.Value, shift int) int64 {
	if v.Type.IsSigned() {
		return v.Int() << uint(shift)
	}
	return int64(uint64(v.Int()) << uint(shift))
}
