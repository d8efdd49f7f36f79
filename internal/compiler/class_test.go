package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/objcore/internal/classdb"
)

func compileOne(t *testing.T, src, path string) (*classdb.ClassInfo, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return CompileClass(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileClassBasic(t *testing.T) {
	info, err := compileOne(t, `
		class: Door: {
			parent:    "Node"
			save_name: "LegacyDoor"
			signals: {
				opened: {}
				locked: {by: string, at: int}
			}
			methods: {
				open: {}
				lock: {args: {key: int, note: "Variant", tint: "Color"}}
				log: {vararg: true}
			}
		}
	`, "class.Door")
	require.NoError(t, err)

	assert.Equal(t, "Door", info.Name)
	assert.Equal(t, "Node", info.Parent)
	assert.Equal(t, "LegacyDoor", info.SaveName)

	require.Len(t, info.Signals, 2)
	assert.Equal(t, "opened", info.Signals[0].Name)
	assert.Empty(t, info.Signals[0].Args)
	assert.Equal(t, []classdb.ArgInfo{{Name: "by", Type: "String"}, {Name: "at", Type: "int"}}, info.Signals[1].Args)

	require.Len(t, info.Methods, 3)
	assert.Equal(t, "open", info.Methods[0].Name)
	assert.Equal(t, []classdb.ArgInfo{
		{Name: "key", Type: "int"},
		{Name: "note", Type: "Variant"},
		{Name: "tint", Type: "Color"},
	}, info.Methods[1].Args)
	assert.True(t, info.Methods[2].Vararg)
	assert.Nil(t, info.Methods[2].Func)
}

func TestCompileClassDefaults(t *testing.T) {
	info, err := compileOne(t, `class: Plain: {}`, "class.Plain")
	require.NoError(t, err)
	assert.Equal(t, "Plain", info.Name)
	assert.Equal(t, DefaultParent, info.Parent)
	assert.Empty(t, info.SaveName)
	assert.Empty(t, info.Signals)
	assert.Empty(t, info.Methods)
}

func TestExtractTypeNameKinds(t *testing.T) {
	info, err := compileOne(t, `
		class: K: signals: s: {
			a: string
			b: int
			c: float
			d: number
			e: bool
			f: [...int]
			g: {x: int}
			h: _
		}
	`, "class.K")
	require.NoError(t, err)

	var types []string
	for _, a := range info.Signals[0].Args {
		types = append(types, a.Type)
	}
	assert.Equal(t, []string{"String", "int", "float", "float", "bool", "Array", "Dictionary", "Variant"}, types)
}

func TestCompileClassErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		path  string
		field string
	}{
		{"self parent", `class: A: parent: "A"`, "class.A", "parent"},
		{"empty parent", `class: A: parent: ""`, "class.A", "parent"},
		{"non-string parent", `class: A: parent: 3`, "class.A", "parent"},
		{"unknown type name", `class: A: methods: m: args: x: "Matrix"`, "class.A", "type"},
		{"args not a struct", `class: A: methods: m: args: 3`, "class.A", "methods.m.args"},
		{"vararg not bool", `class: A: methods: m: vararg: "yes"`, "class.A", "methods.m.vararg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileOne(t, tt.src, tt.path)
			require.Error(t, err)
			var ce *CompileError
			require.True(t, errors.As(err, &ce), "expected CompileError, got %T", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileErrorFormat(t *testing.T) {
	e := &CompileError{Field: "parent", Message: "bad"}
	assert.Equal(t, "parent: bad", e.Error())
}
