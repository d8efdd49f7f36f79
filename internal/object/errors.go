package object

import "github.com/zeebo/errs"

// Error classes returned by the runtime.
var (
	// ErrInvalidArgument covers null callables, nonexistent signals, and
	// arguments that do not match a method declaration.
	ErrInvalidArgument = errs.Class("invalid argument")

	// ErrNotFound is returned when a connection, method, or class does not
	// exist.
	ErrNotFound = errs.Class("not found")

	// ErrAlreadyConnected is returned when the same (signal, callable) pair
	// is connected twice without ConnectReferenceCounted.
	ErrAlreadyConnected = errs.Class("already connected")

	// ErrDanglingReference is returned when a callable's target has been
	// freed.
	ErrDanglingReference = errs.Class("dangling reference")
)

// IsInvalidArgument reports whether err belongs to ErrInvalidArgument.
func IsInvalidArgument(err error) bool { return ErrInvalidArgument.Has(err) }

// IsNotFound reports whether err belongs to ErrNotFound.
func IsNotFound(err error) bool { return ErrNotFound.Has(err) }

// IsAlreadyConnected reports whether err belongs to ErrAlreadyConnected.
func IsAlreadyConnected(err error) bool { return ErrAlreadyConnected.Has(err) }

// IsDanglingReference reports whether err belongs to ErrDanglingReference.
func IsDanglingReference(err error) bool { return ErrDanglingReference.Has(err) }

// ErrorKind returns a stable snake_case name for the class of err, or ""
// for nil and for errors outside the runtime taxonomy. Scenario files and
// the trace journal use these names.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsInvalidArgument(err):
		return "invalid_argument"
	case IsNotFound(err):
		return "not_found"
	case IsAlreadyConnected(err):
		return "already_connected"
	case IsDanglingReference(err):
		return "dangling_reference"
	default:
		return ""
	}
}
