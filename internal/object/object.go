package object

import (
	"errors"

	"github.com/roach88/objcore/internal/classdb"
	"github.com/roach88/objcore/internal/variant"
)

// RootClass is the canonical name of the class every instance descends from.
const RootClass = "Object"

// Object is a runtime instance. It is not safe for concurrent use.
type Object struct {
	db    *DB
	id    ObjectID
	class *classdb.Class

	meta  metadata
	conns connectionTable

	userSignals     map[string]classdb.SignalInfo
	userSignalOrder []string

	blocked       bool
	edited        bool
	editedVersion uint64
	freed         bool
}

// StaticClass returns the root class name. It does not read the receiver
// and may be called on a nil *Object.
func (*Object) StaticClass() string {
	return RootClass
}

// ID returns the instance id. It stays set after Free but no longer
// resolves.
func (o *Object) ID() ObjectID {
	return o.id
}

// DB returns the instance database o belongs to.
func (o *Object) DB() *DB {
	return o.db
}

// Class returns the canonical class name.
func (o *Object) Class() string {
	return o.class.Name()
}

// ClassName returns the canonical class name.
func (o *Object) ClassName() string {
	return o.class.Name()
}

// ClassInfo returns the registered class.
func (o *Object) ClassInfo() *classdb.Class {
	return o.class
}

// SaveClass returns the name used when persisting the instance. It equals
// the canonical name unless the class registered an alias.
func (o *Object) SaveClass() string {
	return o.class.SaveName()
}

// IsClass reports whether name is o's class or one of its ancestors.
func (o *Object) IsClass(name string) bool {
	return o.class.IsClass(name)
}

// HasMethod reports whether the class chain declares method.
func (o *Object) HasMethod(method string) bool {
	return o.class.HasMethod(method)
}

// GetSignalList returns the class chain's signals followed by user signals.
func (o *Object) GetSignalList() []classdb.SignalInfo {
	out := o.class.SignalList()
	for _, name := range o.userSignalOrder {
		out = append(out, o.userSignals[name])
	}
	return out
}

// GetMethodList returns the class chain's methods.
func (o *Object) GetMethodList() []classdb.MethodInfo {
	return o.class.MethodList()
}

// Call invokes a declared method. Undeclared or unbound methods yield
// ErrNotFound; arguments that do not match the declaration yield
// ErrInvalidArgument. Errors returned by the body pass through.
func (o *Object) Call(method string, args ...variant.Value) (variant.Value, error) {
	if err := o.checkLive("call"); err != nil {
		return variant.Nil{}, err
	}
	out, err := o.class.Call(o, method, normalizeArgs(args))
	switch {
	case errors.Is(err, classdb.ErrUnknownMethod), errors.Is(err, classdb.ErrUnboundMethod):
		return variant.Nil{}, ErrNotFound.Wrap(err)
	case errors.Is(err, classdb.ErrArgumentMismatch):
		return variant.Nil{}, ErrInvalidArgument.Wrap(err)
	}
	return out, err
}

// SetEdited marks the instance edited. Each SetEdited(true) increments the
// edited version by one; SetEdited(false) only clears the flag.
func (o *Object) SetEdited(edited bool) {
	if edited {
		o.editedVersion++
	}
	o.edited = edited
}

// IsEdited reports the edited flag.
func (o *Object) IsEdited() bool {
	return o.edited
}

// EditedVersion returns how many times the instance was marked edited.
func (o *Object) EditedVersion() uint64 {
	return o.editedVersion
}

// Free releases the instance's metadata and connections and invalidates its
// id. Callables targeting it become dangling; nobody is notified. Freeing
// twice does nothing.
func (o *Object) Free() {
	if o.freed {
		o.db.logger.Debug("object already freed", "object", o.id)
		return
	}
	o.freed = true
	o.db.release(o.id)
	o.meta.reset()
	o.conns.reset()
	o.userSignals = nil
	o.userSignalOrder = nil
}

// IsFreed reports whether Free was called.
func (o *Object) IsFreed() bool {
	return o.freed
}

func (o *Object) checkLive(op string) error {
	if !o.freed {
		return nil
	}
	err := ErrDanglingReference.New("%s on freed instance %s", op, o.id)
	o.db.logger.Error("operation on freed object", "object", o.id, "op", op)
	return err
}

func (o *Object) isFreed(op string) bool {
	return o.checkLive(op) != nil
}
