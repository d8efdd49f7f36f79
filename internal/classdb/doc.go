// Package classdb is the process-wide registry of class identities.
//
// A class is declared once, at startup, with a ClassInfo: its canonical name,
// its parent, an optional save-class alias, and the signals and methods it
// declares. Registered classes are immutable; the only later mutation is
// Bind, which attaches a Go body to a method that was declared without one
// (classes loaded from CUE manifests declare methods but carry no code).
//
// Signal and method lookups are plain map membership along the ancestor
// chain. Names are never parsed or pattern-matched, so empty or malformed
// names simply miss.
//
// Default() returns the registry shared by the whole process. Packages that
// define classes register them from init, the same way the object package
// registers the root "Object" class. New() returns an isolated registry for
// tests and tools.
package classdb
