// Package object implements the runtime object model: instances with a class
// identity, per-instance metadata, and signal/connection dispatch.
//
// Every Object lives in a DB, which hands out generational ObjectIDs. A
// Callable refers to its target by id, never by pointer, so connections do
// not keep targets alive and a freed target is detected at dispatch time
// instead of being called.
//
// Concurrency model:
//   - A single Object is not safe for concurrent use. Callers serialize
//     access per instance, including emissions that reach it.
//   - The DB id table and deferred-call queue are internally synchronized, so
//     objects may be created and freed from several goroutines.
//
// Failures never panic and never unwind the caller. Operations return an
// error from one of the classes in errors.go, report false, or do nothing,
// and every reported condition is logged through the DB's *slog.Logger.
package object
