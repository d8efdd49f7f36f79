package classdb

import (
	"fmt"
	"sync/atomic"

	"github.com/roach88/objcore/internal/variant"
)

// Class is a registered, immutable class identity.
// Safe for concurrent reads.
type Class struct {
	name     string
	saveName string
	parent   *Class

	// Declaration order, own members only.
	signals []SignalInfo
	methods []*method

	signalIndex map[string]*SignalInfo
	methodIndex map[string]*method
}

// method pairs a declaration with its (possibly late-bound) body.
type method struct {
	info MethodInfo
	fn   atomic.Pointer[MethodFunc]
}

// Name returns the canonical class name.
func (c *Class) Name() string {
	return c.name
}

// SaveName returns the class name used when persisting instances.
func (c *Class) SaveName() string {
	return c.saveName
}

// Parent returns the parent class, or nil for a root class.
func (c *Class) Parent() *Class {
	return c.parent
}

// Ancestors returns the chain from c's parent up to the root.
func (c *Class) Ancestors() []string {
	var out []string
	for p := c.parent; p != nil; p = p.parent {
		out = append(out, p.name)
	}
	return out
}

// IsClass reports whether name is c's canonical name or the name of one of
// its ancestors.
func (c *Class) IsClass(name string) bool {
	for k := c; k != nil; k = k.parent {
		if k.name == name {
			return true
		}
	}
	return false
}

// HasSignal reports whether c or an ancestor declares the signal.
func (c *Class) HasSignal(name string) bool {
	_, ok := c.Signal(name)
	return ok
}

// Signal returns the declaration of a signal on c or an ancestor.
func (c *Class) Signal(name string) (SignalInfo, bool) {
	for k := c; k != nil; k = k.parent {
		if s, ok := k.signalIndex[name]; ok {
			return *s, true
		}
	}
	return SignalInfo{}, false
}

// HasMethod reports whether c or an ancestor declares the method.
func (c *Class) HasMethod(name string) bool {
	return c.lookupMethod(name) != nil
}

// Method returns the declaration of a method on c or an ancestor. The most
// derived declaration wins.
func (c *Class) Method(name string) (MethodInfo, bool) {
	m := c.lookupMethod(name)
	if m == nil {
		return MethodInfo{}, false
	}
	info := m.info
	if fn := m.fn.Load(); fn != nil {
		info.Func = *fn
	}
	return info, true
}

func (c *Class) lookupMethod(name string) *method {
	for k := c; k != nil; k = k.parent {
		if m, ok := k.methodIndex[name]; ok {
			return m
		}
	}
	return nil
}

// SignalList returns all signals visible on c, ancestors first, each in
// declaration order.
func (c *Class) SignalList() []SignalInfo {
	var out []SignalInfo
	for _, k := range c.chainRootFirst() {
		out = append(out, k.signals...)
	}
	return out
}

// MethodList returns all methods visible on c, ancestors first. An override
// appears once, at the position of its first declaration.
func (c *Class) MethodList() []MethodInfo {
	var out []MethodInfo
	seen := make(map[string]bool)
	for _, k := range c.chainRootFirst() {
		for _, m := range k.methods {
			if seen[m.info.Name] {
				continue
			}
			seen[m.info.Name] = true
			info, _ := c.Method(m.info.Name)
			out = append(out, info)
		}
	}
	return out
}

func (c *Class) chainRootFirst() []*Class {
	var chain []*Class
	for k := c; k != nil; k = k.parent {
		chain = append(chain, k)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Call runs the method body with argument checking. Declared argument counts
// and types are enforced unless the method is vararg.
func (c *Class) Call(self Instance, name string, args []variant.Value) (variant.Value, error) {
	m := c.lookupMethod(name)
	if m == nil {
		return variant.Nil{}, fmt.Errorf("%w: %s::%s", ErrUnknownMethod, c.name, name)
	}
	fn := m.fn.Load()
	if fn == nil {
		return variant.Nil{}, fmt.Errorf("%w: %s::%s", ErrUnboundMethod, c.name, name)
	}
	if err := checkArgs(m.info, args); err != nil {
		return variant.Nil{}, fmt.Errorf("%s::%s: %w", c.name, name, err)
	}
	out, err := (*fn)(self, args)
	return variant.Normalize(out), err
}

func checkArgs(info MethodInfo, args []variant.Value) error {
	if info.Vararg {
		if len(args) < len(info.Args) {
			return fmt.Errorf("%w: expected at least %d arguments, got %d", ErrArgumentMismatch, len(info.Args), len(args))
		}
	} else if len(args) != len(info.Args) {
		return fmt.Errorf("%w: expected %d arguments, got %d", ErrArgumentMismatch, len(info.Args), len(args))
	}
	for i, decl := range info.Args {
		if decl.Type == "" || decl.Type == "Variant" {
			continue
		}
		if got := variant.TypeName(args[i]); got != decl.Type {
			return fmt.Errorf("%w: argument %d (%s) expects %s, got %s", ErrArgumentMismatch, i, decl.Name, decl.Type, got)
		}
	}
	return nil
}
