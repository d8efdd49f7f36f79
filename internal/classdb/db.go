package classdb

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrEmptyName is returned when a class, signal, method or argument
	// name is empty.
	ErrEmptyName = errors.New("classdb: empty name")

	// ErrUnknownParent is returned when a class names a parent that has not
	// been registered.
	ErrUnknownParent = errors.New("classdb: unknown parent class")

	// ErrConflictingRegistration is returned when a class name is registered
	// twice with different definitions.
	ErrConflictingRegistration = errors.New("classdb: conflicting registration")

	// ErrDuplicateMember is returned when a class declares the same signal or
	// method twice, or redeclares a signal inherited from an ancestor.
	ErrDuplicateMember = errors.New("classdb: duplicate member")

	// ErrUnknownClass is returned by lookups on unregistered class names.
	ErrUnknownClass = errors.New("classdb: unknown class")

	// ErrUnknownMethod is returned when a method is not declared on a class
	// or its ancestors.
	ErrUnknownMethod = errors.New("classdb: unknown method")

	// ErrUnboundMethod is returned when calling a declared method that has no
	// body yet.
	ErrUnboundMethod = errors.New("classdb: method has no body")

	// ErrAlreadyBound is returned by Bind when the method already has a body.
	ErrAlreadyBound = errors.New("classdb: method already bound")

	// ErrArgumentMismatch is returned when call arguments do not match the
	// method declaration.
	ErrArgumentMismatch = errors.New("classdb: argument mismatch")
)

// DB is a registry of classes. The zero value is not usable; use New.
type DB struct {
	mu      sync.RWMutex
	classes map[string]*Class
	infos   map[string]ClassInfo
}

var (
	defaultOnce sync.Once
	defaultDB   *DB
)

// Default returns the process-wide registry.
func Default() *DB {
	defaultOnce.Do(func() {
		defaultDB = New()
	})
	return defaultDB
}

// New returns an empty registry.
func New() *DB {
	return &DB{
		classes: make(map[string]*Class),
		infos:   make(map[string]ClassInfo),
	}
}

// Register adds a class. Registering an identical definition again returns
// the existing class; a different definition under the same name is an
// error.
func (db *DB) Register(info ClassInfo) (*Class, error) {
	if info.Name == "" {
		return nil, ErrEmptyName
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if existing, ok := db.classes[info.Name]; ok {
		if sameDefinition(db.infos[info.Name], info) {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrConflictingRegistration, info.Name)
	}

	var parent *Class
	if info.Parent != "" {
		p, ok := db.classes[info.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: %s (parent of %s)", ErrUnknownParent, info.Parent, info.Name)
		}
		parent = p
	}

	c := &Class{
		name:        info.Name,
		saveName:    info.saveName(),
		parent:      parent,
		signalIndex: make(map[string]*SignalInfo, len(info.Signals)),
		methodIndex: make(map[string]*method, len(info.Methods)),
	}

	c.signals = make([]SignalInfo, 0, len(info.Signals))
	for _, s := range info.Signals {
		if err := validateMember(info.Name, "signal", s.Name, s.Args); err != nil {
			return nil, err
		}
		if _, dup := c.signalIndex[s.Name]; dup || (parent != nil && parent.HasSignal(s.Name)) {
			return nil, fmt.Errorf("%w: %s signal %q", ErrDuplicateMember, info.Name, s.Name)
		}
		c.signals = append(c.signals, cloneSignal(s))
		c.signalIndex[s.Name] = &c.signals[len(c.signals)-1]
	}

	for _, mi := range info.Methods {
		if err := validateMember(info.Name, "method", mi.Name, mi.Args); err != nil {
			return nil, err
		}
		if _, dup := c.methodIndex[mi.Name]; dup {
			return nil, fmt.Errorf("%w: %s method %q", ErrDuplicateMember, info.Name, mi.Name)
		}
		m := &method{info: cloneMethod(mi)}
		if mi.Func != nil {
			fn := mi.Func
			m.fn.Store(&fn)
		}
		c.methods = append(c.methods, m)
		c.methodIndex[mi.Name] = m
	}

	db.classes[info.Name] = c
	stored := info
	stored.Signals = make([]SignalInfo, len(c.signals))
	copy(stored.Signals, c.signals)
	stored.Methods = make([]MethodInfo, len(c.methods))
	for i, m := range c.methods {
		stored.Methods[i] = m.info
	}
	db.infos[info.Name] = stored
	return c, nil
}

// MustRegister is Register for init-time declarations; it panics on error.
func (db *DB) MustRegister(info ClassInfo) *Class {
	c, err := db.Register(info)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns a registered class by canonical name.
func (db *DB) Lookup(name string) (*Class, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.classes[name]
	return c, ok
}

// Classes returns the registered class names, sorted.
func (db *DB) Classes() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.classes))
	for name := range db.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered classes.
func (db *DB) Count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.classes)
}

// Bind attaches a body to a method declared on class without one. The method
// must be declared on the class itself, not inherited.
func (db *DB) Bind(class, name string, fn MethodFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: nil body for %s::%s", ErrArgumentMismatch, class, name)
	}
	c, ok := db.Lookup(class)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	m, ok := c.methodIndex[name]
	if !ok {
		return fmt.Errorf("%w: %s::%s", ErrUnknownMethod, class, name)
	}
	if !m.fn.CompareAndSwap(nil, &fn) {
		return fmt.Errorf("%w: %s::%s", ErrAlreadyBound, class, name)
	}
	return nil
}

func validateMember(class, kind, name string, args []ArgInfo) error {
	if name == "" {
		return fmt.Errorf("%w: %s %s", ErrEmptyName, class, kind)
	}
	for i, a := range args {
		if a.Name == "" {
			return fmt.Errorf("%w: %s %s %q argument %d", ErrEmptyName, class, kind, name, i)
		}
	}
	return nil
}

func cloneSignal(s SignalInfo) SignalInfo {
	s.Args = append([]ArgInfo(nil), s.Args...)
	return s
}

func cloneMethod(m MethodInfo) MethodInfo {
	m.Args = append([]ArgInfo(nil), m.Args...)
	m.Func = nil
	return m
}
