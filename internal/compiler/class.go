package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/objcore/internal/classdb"
)

// DefaultParent is the parent of a class that does not name one.
const DefaultParent = "Object"

// variantTypes are the type names accepted as string-literal argument types.
var variantTypes = map[string]bool{
	"Variant":    true,
	"Nil":        true,
	"bool":       true,
	"int":        true,
	"float":      true,
	"String":     true,
	"Color":      true,
	"Vector2":    true,
	"Array":      true,
	"Dictionary": true,
	"Object":     true,
}

// CompileClass parses a CUE value into a ClassInfo.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the class struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`class: Door: { ... }`)
//	info, err := CompileClass(v.LookupPath(cue.ParsePath("class.Door")))
func CompileClass(v cue.Value) (*classdb.ClassInfo, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	info := &classdb.ClassInfo{Parent: DefaultParent}

	// Class name from the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		info.Name = labelName(labels[len(labels)-1])
	}
	if info.Name == "" {
		return nil, &CompileError{Field: "name", Message: "class name is required", Pos: v.Pos()}
	}

	var err error
	if info.Parent, err = optionalString(v, "parent", DefaultParent); err != nil {
		return nil, err
	}
	if info.Parent == info.Name {
		return nil, &CompileError{
			Field:   "parent",
			Message: fmt.Sprintf("class %s cannot be its own parent", info.Name),
			Pos:     v.LookupPath(cue.ParsePath("parent")).Pos(),
		}
	}
	if info.SaveName, err = optionalString(v, "save_name", ""); err != nil {
		return nil, err
	}

	if info.Signals, err = parseSignals(v); err != nil {
		return nil, err
	}
	if info.Methods, err = parseMethods(v); err != nil {
		return nil, err
	}
	return info, nil
}

func labelName(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

func optionalString(v cue.Value, field, def string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: fv.Pos()}
	}
	if s == "" {
		return "", &CompileError{Field: field, Message: "must not be empty", Pos: fv.Pos()}
	}
	return s, nil
}

// parseSignals reads `signals: { name: { arg: type, ... } }`.
func parseSignals(v cue.Value) ([]classdb.SignalInfo, error) {
	signalsVal := v.LookupPath(cue.ParsePath("signals"))
	if !signalsVal.Exists() {
		return nil, nil
	}

	iter, err := signalsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var signals []classdb.SignalInfo
	for iter.Next() {
		args, err := parseArgs(iter.Value(), "signals."+iter.Label())
		if err != nil {
			return nil, err
		}
		signals = append(signals, classdb.SignalInfo{Name: iter.Label(), Args: args})
	}
	return signals, nil
}

// parseMethods reads `methods: { name: { args: {...}, vararg: bool } }`.
func parseMethods(v cue.Value) ([]classdb.MethodInfo, error) {
	methodsVal := v.LookupPath(cue.ParsePath("methods"))
	if !methodsVal.Exists() {
		return nil, nil
	}

	iter, err := methodsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var methods []classdb.MethodInfo
	for iter.Next() {
		name := iter.Label()
		mv := iter.Value()
		field := "methods." + name

		method := classdb.MethodInfo{Name: name}

		if argsVal := mv.LookupPath(cue.ParsePath("args")); argsVal.Exists() {
			if method.Args, err = parseArgs(argsVal, field+".args"); err != nil {
				return nil, err
			}
		}

		if varargVal := mv.LookupPath(cue.ParsePath("vararg")); varargVal.Exists() {
			if method.Vararg, err = varargVal.Bool(); err != nil {
				return nil, &CompileError{Field: field + ".vararg", Message: "must be a bool", Pos: varargVal.Pos()}
			}
		}

		methods = append(methods, method)
	}
	return methods, nil
}

// parseArgs reads an ordered struct of argument name to type.
func parseArgs(v cue.Value, field string) ([]classdb.ArgInfo, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a struct of argument types", Pos: v.Pos()}
	}

	var args []classdb.ArgInfo
	for iter.Next() {
		typ, err := extractTypeName(iter.Value())
		if err != nil {
			return nil, err
		}
		args = append(args, classdb.ArgInfo{Name: iter.Label(), Type: typ})
	}
	return args, nil
}

// extractTypeName converts a CUE argument declaration to a variant type
// name. A concrete string names the type directly.
func extractTypeName(v cue.Value) (string, error) {
	if s, err := v.String(); err == nil && v.IsConcrete() {
		if !variantTypes[s] {
			return "", &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("unknown type name %q", s),
				Pos:     v.Pos(),
			}
		}
		return s, nil
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		return "String", nil
	case cue.IntKind:
		return "int", nil
	case cue.FloatKind, cue.NumberKind:
		return "float", nil
	case cue.BoolKind:
		return "bool", nil
	case cue.ListKind:
		return "Array", nil
	case cue.StructKind:
		return "Dictionary", nil
	case cue.TopKind:
		return "Variant", nil
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with a position wins
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
