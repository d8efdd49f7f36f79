package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Nil{}
	var _ Value = Bool(true)
	var _ Value = Int(42)
	var _ Value = Float(1.5)
	var _ Value = String("test")
	var _ Value = NewColor(0, 1, 0)
	var _ Value = Vector2{X: 1, Y: 2}
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Dictionary{"key": String("value")}
	var _ Value = ObjectRef(7)
}

func TestIsNil(t *testing.T) {
	assert.True(t, IsNil(nil))
	assert.True(t, IsNil(Nil{}))
	assert.False(t, IsNil(Int(0)))
	assert.False(t, IsNil(String("")))
	assert.False(t, IsNil(Array{}))
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil vs Nil", nil, Nil{}, true},
		{"same int", Int(3), Int(3), true},
		{"int vs float", Int(1), Float(1), false},
		{"string", String("x"), String("x"), true},
		{"string differs", String("x"), String("y"), false},
		{"color", NewColor(0, 1, 0), NewColorRGBA(0, 1, 0, 1), true},
		{"nested array", Array{Int(1), Array{String("a")}}, Array{Int(1), Array{String("a")}}, true},
		{"array length", Array{Int(1)}, Array{Int(1), Int(2)}, false},
		{"dictionary", Dictionary{"a": Int(1)}, Dictionary{"a": Int(1)}, true},
		{"dictionary missing key", Dictionary{"a": Int(1)}, Dictionary{"b": Int(1)}, false},
		{"object ref", ObjectRef(4), ObjectRef(4), true},
		{"nil vs empty string", Nil{}, String(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestColorIsEqualApprox(t *testing.T) {
	c := NewColor(0, 1, 0)

	assert.True(t, c.IsEqualApprox(NewColor(0, 1, 0)))
	assert.True(t, c.IsEqualApprox(NewColor(0.000001, 0.999999, 0)))
	assert.False(t, c.IsEqualApprox(NewColor(0.1, 1, 0)))
	assert.False(t, c.IsEqualApprox(NewColorRGBA(0, 1, 0, 0.5)))
}

func TestEqualApproxRecurses(t *testing.T) {
	a := Array{Float(0.30000001), NewColor(0.5, 0.5, 0.5)}
	b := Array{Float(0.3), NewColor(0.5000001, 0.5, 0.5)}

	assert.False(t, Equal(a, b))
	assert.True(t, EqualApprox(a, b))
}

func TestDictionarySortedKeys(t *testing.T) {
	d := Dictionary{
		"zebra":  Int(1),
		"apple":  Int(2),
		"banana": Int(3),
	}
	assert.Equal(t, []string{"apple", "banana", "zebra"}, d.SortedKeys())
}

func TestNewDictionaryLastPairWins(t *testing.T) {
	d := NewDictionary(P("k", Int(1)), P("k", Int(2)))
	require.Len(t, d, 1)
	assert.Equal(t, Int(2), d["k"])
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "Nil", TypeName(nil))
	assert.Equal(t, "Color", TypeName(NewColor(1, 1, 1)))
	assert.Equal(t, "Object", TypeName(ObjectRef(1)))
	assert.Equal(t, "Dictionary", TypeName(Dictionary{}))
}

func TestFromGo(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Value
	}{
		{"nil", nil, Nil{}},
		{"bool", true, Bool(true)},
		{"int", 5, Int(5)},
		{"uint8", uint8(9), Int(9)},
		{"float", 2.5, Float(2.5)},
		{"string", "hi", String("hi")},
		{"list", []any{1, "a"}, Array{Int(1), String("a")}},
		{"map", map[string]any{"a": 1}, Dictionary{"a": Int(1)}},
		{"color rgb", map[string]any{"color": []any{0, 1, 0}}, NewColor(0, 1, 0)},
		{"color rgba", map[string]any{"color": []any{0.5, 0.5, 0.5, 0.25}}, NewColorRGBA(0.5, 0.5, 0.5, 0.25)},
		{"vector2", map[string]any{"vector2": []any{1, 2}}, Vector2{X: 1, Y: 2}},
		{"value passthrough", Int(3), Int(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.input)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "got %#v", got)
		})
	}
}

func TestFromGoErrors(t *testing.T) {
	_, err := FromGo(struct{}{})
	assert.Error(t, err)

	_, err = FromGo(map[string]any{"color": []any{1, 2}})
	assert.ErrorContains(t, err, "color")

	_, err = FromGo(map[string]any{"vector2": "nope"})
	assert.ErrorContains(t, err, "vector2")

	_, err = FromGo(uint64(1) << 63)
	assert.ErrorContains(t, err, "int64 range")
}

func TestToGoRoundTripsThroughFromGo(t *testing.T) {
	original := Dictionary{
		"tint":  NewColor(0, 1, 0),
		"pos":   Vector2{X: 3, Y: 4},
		"tags":  Array{String("a"), Bool(false)},
		"count": Int(2),
		"ratio": Float(0.5),
		"empty": Nil{},
	}

	back, err := FromGo(ToGo(original))
	require.NoError(t, err)
	assert.True(t, Equal(original, back))
}
