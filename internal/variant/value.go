package variant

import (
	"math"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface representing a storable value.
// Only Nil, Bool, Int, Float, String, Color, Vector2, Array, Dictionary and
// ObjectRef implement it.
type Value interface {
	variantValue() // Sealed - only these types implement it
}

// Nil is the empty value. Absent metadata reads back as Nil{}.
type Nil struct{}

func (Nil) variantValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) variantValue() {}

// Int is a 64-bit signed integer value.
type Int int64

func (Int) variantValue() {}

// Float is a 64-bit floating point value.
type Float float64

func (Float) variantValue() {}

// String is a text value. Stored verbatim, never normalized.
type String string

func (String) variantValue() {}

// Color is an RGBA color with float channels, nominally in [0, 1].
type Color struct {
	R, G, B, A float32
}

func (Color) variantValue() {}

// Vector2 is a 2D vector.
type Vector2 struct {
	X, Y float32
}

func (Vector2) variantValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) variantValue() {}

// Dictionary maps string keys to values.
// Use SortedKeys() for deterministic iteration.
type Dictionary map[string]Value

func (Dictionary) variantValue() {}

// ObjectRef refers to an object by its instance id. It does not keep the
// object alive.
type ObjectRef uint64

func (ObjectRef) variantValue() {}

// approxEpsilon matches the tolerance used by IsEqualApprox.
const approxEpsilon = 0.00001

// NewColor creates an opaque color.
func NewColor(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// NewColorRGBA creates a color with an explicit alpha channel.
func NewColorRGBA(r, g, b, a float32) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// IsEqualApprox reports whether every channel of c and other differs by less
// than a small epsilon.
func (c Color) IsEqualApprox(other Color) bool {
	return approxEqual(c.R, other.R) &&
		approxEqual(c.G, other.G) &&
		approxEqual(c.B, other.B) &&
		approxEqual(c.A, other.A)
}

// IsEqualApprox reports whether both components of v and other differ by less
// than a small epsilon.
func (v Vector2) IsEqualApprox(other Vector2) bool {
	return approxEqual(v.X, other.X) && approxEqual(v.Y, other.Y)
}

func approxEqual(a, b float32) bool {
	if a == b {
		return true
	}
	return math.Abs(float64(a)-float64(b)) < approxEpsilon
}

// NewArray creates an Array from values.
func NewArray(vals ...Value) Array {
	return Array(vals)
}

// Pair represents a key-value pair for typed Dictionary construction.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewDictionary(P("name", String("player")), P("hp", Int(5)))
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// NewDictionary creates a Dictionary from key-value pairs. Later pairs win.
func NewDictionary(pairs ...Pair) Dictionary {
	d := make(Dictionary, len(pairs))
	for _, p := range pairs {
		d[p.Key] = p.Value
	}
	return d
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for astral code points.
func (d Dictionary) SortedKeys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// IsNil reports whether v is the empty value. A Go nil counts as empty.
func IsNil(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Nil)
	return ok
}

// Normalize returns Nil{} for a Go nil and v otherwise.
func Normalize(v Value) Value {
	if v == nil {
		return Nil{}
	}
	return v
}

// TypeName returns the display name of v's kind.
func TypeName(v Value) string {
	switch v.(type) {
	case nil, Nil:
		return "Nil"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "String"
	case Color:
		return "Color"
	case Vector2:
		return "Vector2"
	case Array:
		return "Array"
	case Dictionary:
		return "Dictionary"
	case ObjectRef:
		return "Object"
	default:
		return "unknown"
	}
}
