package variant

import (
	"fmt"
	"math"
)

// FromGo converts a decoded YAML/JSON value into a Value.
//
// Supported inputs: nil, bool, signed/unsigned integers, float32/float64,
// string, []any, map[string]any, and Values themselves. Two map shapes are
// recognized as typed composites:
//
//	{color: [r, g, b]} or {color: [r, g, b, a]} -> Color
//	{vector2: [x, y]}                          -> Vector2
//
// Every other map becomes a Dictionary.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Nil{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUnsigned(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUnsigned(val)
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case string:
		return String(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		return fromMap(val)
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// MustFromGo is FromGo that panics on error. Intended for tests and literals.
func MustFromGo(v any) Value {
	out, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return out
}

func fromUnsigned(n uint64) (Value, error) {
	if n > math.MaxInt64 {
		return nil, fmt.Errorf("integer out of int64 range: %d", n)
	}
	return Int(n), nil
}

func fromMap(m map[string]any) (Value, error) {
	if len(m) == 1 {
		if raw, ok := m["color"]; ok {
			return colorFromList(raw)
		}
		if raw, ok := m["vector2"]; ok {
			return vector2FromList(raw)
		}
	}

	d := make(Dictionary, len(m))
	for k, elem := range m {
		conv, err := FromGo(elem)
		if err != nil {
			return nil, fmt.Errorf("object[%q]: %w", k, err)
		}
		d[k] = conv
	}
	return d, nil
}

func colorFromList(raw any) (Value, error) {
	nums, err := floatList(raw)
	if err != nil {
		return nil, fmt.Errorf("color: %w", err)
	}
	switch len(nums) {
	case 3:
		return NewColor(nums[0], nums[1], nums[2]), nil
	case 4:
		return NewColorRGBA(nums[0], nums[1], nums[2], nums[3]), nil
	default:
		return nil, fmt.Errorf("color: want 3 or 4 channels, got %d", len(nums))
	}
}

func vector2FromList(raw any) (Value, error) {
	nums, err := floatList(raw)
	if err != nil {
		return nil, fmt.Errorf("vector2: %w", err)
	}
	if len(nums) != 2 {
		return nil, fmt.Errorf("vector2: want 2 components, got %d", len(nums))
	}
	return Vector2{X: nums[0], Y: nums[1]}, nil
}

func floatList(raw any) ([]float32, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("want a list of numbers, got %T", raw)
	}
	out := make([]float32, len(list))
	for i, elem := range list {
		switch n := elem.(type) {
		case int:
			out[i] = float32(n)
		case int64:
			out[i] = float32(n)
		case float64:
			out[i] = float32(n)
		case float32:
			out[i] = n
		default:
			return nil, fmt.Errorf("[%d]: want a number, got %T", i, elem)
		}
	}
	return out, nil
}

// ToGo converts a Value into plain Go data (nil, bool, int64, float64,
// string, []any, map[string]any). Typed composites use the same single-key
// map shapes that FromGo accepts, and ObjectRef becomes {object: id}.
func ToGo(v Value) any {
	switch val := Normalize(v).(type) {
	case Nil:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Color:
		return map[string]any{"color": []any{float64(val.R), float64(val.G), float64(val.B), float64(val.A)}}
	case Vector2:
		return map[string]any{"vector2": []any{float64(val.X), float64(val.Y)}}
	case ObjectRef:
		return map[string]any{"object": uint64(val)}
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case Dictionary:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}
