package classdb

import (
	"slices"

	"github.com/roach88/objcore/internal/variant"
)

// ArgInfo describes one declared argument of a signal or method.
// Type is a variant type name ("int", "String", "Color", ...). An empty Type
// or "Variant" accepts any value.
type ArgInfo struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// SignalInfo describes a declared signal.
type SignalInfo struct {
	Name string    `json:"name"`
	Args []ArgInfo `json:"args,omitempty"`
}

// Instance is the receiver handed to a method body. The object package's
// *Object implements it; bodies type-assert to reach the full object API.
type Instance interface {
	ClassName() string
}

// MethodFunc is the Go body of a declared method.
type MethodFunc func(self Instance, args []variant.Value) (variant.Value, error)

// MethodInfo describes a declared method.
type MethodInfo struct {
	Name string    `json:"name"`
	Args []ArgInfo `json:"args,omitempty"`

	// Vararg methods accept any number of arguments; Args documents the
	// leading ones only.
	Vararg bool `json:"vararg,omitempty"`

	// Func is the method body. It may be nil at registration and attached
	// later with Bind.
	Func MethodFunc `json:"-"`
}

// ClassInfo is the registration record of a class.
type ClassInfo struct {
	// Name is the canonical class name.
	Name string `json:"name"`

	// Parent is the name of the parent class. Empty for root classes.
	Parent string `json:"parent,omitempty"`

	// SaveName is the compatibility alias used when the class is persisted.
	// Defaults to Name.
	SaveName string `json:"save_name,omitempty"`

	Signals []SignalInfo `json:"signals,omitempty"`
	Methods []MethodInfo `json:"methods,omitempty"`
}

// sameDefinition reports whether two registrations describe the same class.
// Method bodies are not comparable and are ignored.
func sameDefinition(a, b ClassInfo) bool {
	if a.Name != b.Name || a.Parent != b.Parent || a.saveName() != b.saveName() {
		return false
	}
	if !slices.EqualFunc(a.Signals, b.Signals, func(x, y SignalInfo) bool {
		return x.Name == y.Name && slices.Equal(x.Args, y.Args)
	}) {
		return false
	}
	return slices.EqualFunc(a.Methods, b.Methods, func(x, y MethodInfo) bool {
		return x.Name == y.Name && x.Vararg == y.Vararg && slices.Equal(x.Args, y.Args)
	})
}

func (ci ClassInfo) saveName() string {
	if ci.SaveName == "" {
		return ci.Name
	}
	return ci.SaveName
}
