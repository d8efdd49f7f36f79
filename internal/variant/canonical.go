package variant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces deterministic JSON for a Value.
//
// Differences from encoding/json:
//  1. Dictionary keys sorted by UTF-16 code units (RFC 8785)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized at this boundary only; stored values are not
//  4. Floats always carry a '.' or exponent so they never read back as ints
//  5. Typed composites use single-key wrappers: {"Color":[r,g,b,a]},
//     {"Vector2":[x,y]}, {"Object":id}
//
// Non-finite floats are rejected.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, Normalize(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalCanonicalList encodes a list of values as a canonical JSON array.
// Used for signal argument lists.
func MarshalCanonicalList(vals []Value) ([]byte, error) {
	return MarshalCanonical(Array(vals))
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case Nil:
		buf.WriteString("null")
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		return writeFloat(buf, float64(val), 64)
	case String:
		return writeString(buf, string(val))
	case Color:
		buf.WriteString(`{"Color":`)
		if err := writeFloats(buf, val.R, val.G, val.B, val.A); err != nil {
			return fmt.Errorf("Color: %w", err)
		}
		buf.WriteByte('}')
	case Vector2:
		buf.WriteString(`{"Vector2":`)
		if err := writeFloats(buf, val.X, val.Y); err != nil {
			return fmt.Errorf("Vector2: %w", err)
		}
		buf.WriteByte('}')
	case ObjectRef:
		buf.WriteString(`{"Object":`)
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
		buf.WriteByte('}')
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, Normalize(elem)); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Dictionary:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, Normalize(val[k])); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown Value type: %T", v)
	}
	return nil
}

func writeFloats(buf *bytes.Buffer, fs ...float32) error {
	buf.WriteByte('[')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeFloat(buf, float64(f), 32); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeFloat(buf *bytes.Buffer, f float64, bitSize int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite float is not representable: %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, bitSize)
	if !bytes.ContainsAny([]byte(s), ".eE") {
		s += ".0"
	}
	buf.WriteString(s)
	return nil
}

// writeString writes an NFC-normalized JSON string without HTML escaping.
// U+2028 and U+2029 are written literally as RFC 8785 requires.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}

	// json.Encoder adds a trailing newline
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators rewrites the \u2028 and \u2029 escapes emitted by
// encoding/json back to literal characters. An escape preceded by an odd
// number of backslashes is literal text and is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+5 < len(data) && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			backslashes := 0
			for j := len(out) - 1; j >= 0 && out[j] == '\\'; j-- {
				backslashes++
			}
			if backslashes%2 == 0 {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}
