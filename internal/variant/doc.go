// Package variant provides the closed set of value kinds that objects can store
// as metadata and pass as signal arguments.
//
// This package is the foundational layer: it imports nothing internal. Every
// other package that moves values around (object, store, harness) speaks
// variant.Value.
//
// Key design constraints:
//   - Value is sealed: only the kinds declared here implement it
//   - Equality is type-sensitive (Int(1) is not Float(1))
//   - A Go nil Value is read as Nil{} everywhere
//   - Canonical encoding is deterministic so traces can be golden-compared
package variant
