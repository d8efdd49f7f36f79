package object

import (
	"github.com/roach88/objcore/internal/variant"
)

// CustomFunc is the body of a custom callable.
type CustomFunc func(args []variant.Value) (variant.Value, error)

type customFunc struct {
	name string
	fn   CustomFunc
}

type boundArgs struct {
	args []variant.Value
}

// Callable is a reference to something invocable: a named method on a target
// instance, or a custom Go function. The zero value is the null callable.
//
// Callables are comparable with ==. Method callables compare by (DB, target,
// method). Custom callables compare by identity: two are equal only if they
// come from the same NewCustomCallable call. A callable never keeps its
// target alive; the target is resolved through its DB on every call.
type Callable struct {
	db     *DB
	target ObjectID
	method string
	custom *customFunc
	bound  *boundArgs
}

// NewCallable returns a callable for method on target. A nil target yields
// the null callable.
func NewCallable(target *Object, method string) Callable {
	if target == nil {
		return Callable{}
	}
	return target.db.Callable(target.id, method)
}

// NewCustomCallable wraps fn in a callable with a fresh identity. The name
// is for diagnostics only.
func NewCustomCallable(name string, fn CustomFunc) Callable {
	if fn == nil {
		return Callable{}
	}
	return Callable{custom: &customFunc{name: name, fn: fn}}
}

// IsNull reports whether c refers to nothing.
func (c Callable) IsNull() bool {
	return c.custom == nil && c.target.IsNull()
}

func (c Callable) isCustom() bool {
	return c.custom != nil
}

// IsCustom reports whether c wraps a Go function instead of a method.
func (c Callable) IsCustom() bool {
	return c.isCustom()
}

// IsValid reports whether calling c would reach a body: c is custom, or its
// target is alive and its class declares the method.
func (c Callable) IsValid() bool {
	if c.isCustom() {
		return true
	}
	if c.IsNull() || c.db == nil {
		return false
	}
	target := c.db.Lookup(c.target)
	return target != nil && target.HasMethod(c.method)
}

// Target returns the target id; null for custom callables.
func (c Callable) Target() ObjectID {
	return c.target
}

// Method returns the method name, or the custom callable's name.
func (c Callable) Method() string {
	if c.isCustom() {
		return c.custom.name
	}
	return c.method
}

// BoundArgs returns the arguments appended by Bind.
func (c Callable) BoundArgs() []variant.Value {
	if c.bound == nil {
		return nil
	}
	return append([]variant.Value(nil), c.bound.args...)
}

// Equal reports whether c and other are the same callable.
func (c Callable) Equal(other Callable) bool {
	return c == other
}

// Bind returns a callable that appends args after the caller's arguments.
// The result has its own identity and is not equal to c.
func (c Callable) Bind(args ...variant.Value) Callable {
	if c.IsNull() {
		return c
	}
	all := c.BoundArgs()
	for _, a := range args {
		all = append(all, variant.Normalize(a))
	}
	c.bound = &boundArgs{args: all}
	return c
}

// Call invokes c. A freed target yields ErrDanglingReference and a missing
// method yields ErrNotFound.
func (c Callable) Call(args ...variant.Value) (variant.Value, error) {
	if c.IsNull() {
		return variant.Nil{}, ErrInvalidArgument.New("call on null callable")
	}
	if c.bound != nil {
		args = append(append([]variant.Value(nil), args...), c.bound.args...)
	}
	if c.isCustom() {
		out, err := c.custom.fn(args)
		return variant.Normalize(out), err
	}
	if c.db == nil {
		return variant.Nil{}, ErrDanglingReference.New("callable %s has no instance database", c)
	}
	target := c.db.Lookup(c.target)
	if target == nil {
		return variant.Nil{}, ErrDanglingReference.New("target %s of %s was freed", c.target, c.method)
	}
	return target.Call(c.method, args...)
}

// String returns "null", "custom:<name>", or "<Class>::<method>". A freed
// target is shown by id.
func (c Callable) String() string {
	switch {
	case c.isCustom():
		return "custom:" + c.custom.name
	case c.IsNull():
		return "null"
	}
	owner := "ObjectID(" + c.target.String() + ")"
	if c.db != nil {
		if target := c.db.Lookup(c.target); target != nil {
			owner = target.ClassName()
		}
	}
	return owner + "::" + c.method
}
