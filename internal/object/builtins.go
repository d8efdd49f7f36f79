package object

import (
	"github.com/roach88/objcore/internal/classdb"
	"github.com/roach88/objcore/internal/variant"
)

func init() {
	classdb.Default().MustRegister(rootClassInfo())
}

// RegisterRoot registers the root class and its built-in methods into
// classes. Registering into a registry that already has it does nothing, so
// tools can call it before declaring subclasses.
func RegisterRoot(classes *classdb.DB) error {
	_, err := classes.Register(rootClassInfo())
	return err
}

func rootClassInfo() classdb.ClassInfo {
	str := func(name string) classdb.ArgInfo { return classdb.ArgInfo{Name: name, Type: "String"} }
	return classdb.ClassInfo{
		Name: RootClass,
		Signals: []classdb.SignalInfo{
			{Name: "script_changed"},
			{Name: "property_list_changed"},
		},
		Methods: []classdb.MethodInfo{
			{Name: "get_class", Func: builtin(func(o *Object, _ []variant.Value) (variant.Value, error) {
				return variant.String(o.ClassName()), nil
			})},
			{Name: "is_class", Args: []classdb.ArgInfo{str("class")}, Func: builtin(func(o *Object, args []variant.Value) (variant.Value, error) {
				return variant.Bool(o.IsClass(string(args[0].(variant.String)))), nil
			})},
			{Name: "get_instance_id", Func: builtin(func(o *Object, _ []variant.Value) (variant.Value, error) {
				return variant.ObjectRef(o.id), nil
			})},
			{Name: "set_meta", Args: []classdb.ArgInfo{str("name"), {Name: "value"}}, Func: builtin(func(o *Object, args []variant.Value) (variant.Value, error) {
				o.SetMeta(string(args[0].(variant.String)), args[1])
				return nil, nil
			})},
			{Name: "get_meta", Args: []classdb.ArgInfo{str("name")}, Vararg: true, Func: builtin(func(o *Object, args []variant.Value) (variant.Value, error) {
				var def variant.Value = variant.Nil{}
				if len(args) > 1 {
					def = args[1]
				}
				return o.GetMetaOr(string(args[0].(variant.String)), def), nil
			})},
			{Name: "has_meta", Args: []classdb.ArgInfo{str("name")}, Func: builtin(func(o *Object, args []variant.Value) (variant.Value, error) {
				return variant.Bool(o.HasMeta(string(args[0].(variant.String)))), nil
			})},
			{Name: "remove_meta", Args: []classdb.ArgInfo{str("name")}, Func: builtin(func(o *Object, args []variant.Value) (variant.Value, error) {
				o.RemoveMeta(string(args[0].(variant.String)))
				return nil, nil
			})},
			{Name: "get_meta_list", Func: builtin(func(o *Object, _ []variant.Value) (variant.Value, error) {
				return stringArray(o.GetMetaList()), nil
			})},
			{Name: "has_method", Args: []classdb.ArgInfo{str("method")}, Func: builtin(func(o *Object, args []variant.Value) (variant.Value, error) {
				return variant.Bool(o.HasMethod(string(args[0].(variant.String)))), nil
			})},
			{Name: "has_signal", Args: []classdb.ArgInfo{str("signal")}, Func: builtin(func(o *Object, args []variant.Value) (variant.Value, error) {
				return variant.Bool(o.HasSignal(string(args[0].(variant.String)))), nil
			})},
			{Name: "add_user_signal", Args: []classdb.ArgInfo{str("signal")}, Func: builtin(func(o *Object, args []variant.Value) (variant.Value, error) {
				return nil, o.AddUserSignal(string(args[0].(variant.String)))
			})},
			{Name: "emit_signal", Args: []classdb.ArgInfo{str("signal")}, Vararg: true, Func: builtin(func(o *Object, args []variant.Value) (variant.Value, error) {
				return nil, o.EmitSignal(string(args[0].(variant.String)), args[1:]...)
			})},
			{Name: "set_block_signals", Args: []classdb.ArgInfo{{Name: "enable", Type: "bool"}}, Func: builtin(func(o *Object, args []variant.Value) (variant.Value, error) {
				o.SetBlockSignals(bool(args[0].(variant.Bool)))
				return nil, nil
			})},
			{Name: "is_blocking_signals", Func: builtin(func(o *Object, _ []variant.Value) (variant.Value, error) {
				return variant.Bool(o.IsBlockingSignals()), nil
			})},
			{Name: "get_signal_list", Func: builtin(func(o *Object, _ []variant.Value) (variant.Value, error) {
				var names []string
				for _, s := range o.GetSignalList() {
					names = append(names, s.Name)
				}
				return stringArray(names), nil
			})},
			{Name: "get_method_list", Func: builtin(func(o *Object, _ []variant.Value) (variant.Value, error) {
				var names []string
				for _, m := range o.GetMethodList() {
					names = append(names, m.Name)
				}
				return stringArray(names), nil
			})},
			{Name: "notify_property_list_changed", Func: builtin(func(o *Object, _ []variant.Value) (variant.Value, error) {
				return nil, o.EmitSignal("property_list_changed")
			})},
		},
	}
}

// builtin adapts a body written against *Object to classdb.MethodFunc.
// Argument types are checked by classdb before the body runs.
func builtin(fn func(o *Object, args []variant.Value) (variant.Value, error)) classdb.MethodFunc {
	return func(self classdb.Instance, args []variant.Value) (variant.Value, error) {
		o, ok := self.(*Object)
		if !ok {
			return nil, ErrInvalidArgument.New("receiver %T is not an object", self)
		}
		return fn(o, args)
	}
}

func stringArray(ss []string) variant.Array {
	out := make(variant.Array, len(ss))
	for i, s := range ss {
		out[i] = variant.String(s)
	}
	return out
}
