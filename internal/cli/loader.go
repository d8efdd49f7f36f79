package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/objcore/internal/classdb"
	"github.com/roach88/objcore/internal/compiler"
	"github.com/roach88/objcore/internal/object"
)

// LoadMode controls how errors are handled during manifest loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the classes declared by the manifests of a directory.
type LoadResult struct {
	Classes   []classdb.ClassInfo // in manifest order
	DB        *classdb.DB         // nil unless every class compiled and registered
	FileCount int                 // Number of CUE files found
}

// LoadError represents an error that occurred during manifest loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadClasses compiles the CUE class manifests of dir and registers them,
// above the root Object class, into a fresh class database.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all compile errors; registration
// is skipped when any class failed to compile.
func LoadClasses(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("classes directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing classes directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	value, err := compiler.LoadValue(dir)
	if err != nil {
		loadErr := convertCompileError(err, dir)
		if loadErr.Code == ErrCodeGeneric {
			loadErr.Code = ErrCodeLoadFailed
		}
		return nil, []error{loadErr}
	}

	result := &LoadResult{FileCount: len(cueFiles)}

	infos, compileErrs := compiler.CompileManifest(value, mode == LoadModeFailFast)
	result.Classes = infos

	var errs []error
	for _, err := range compileErrs {
		errs = append(errs, convertCompileError(err, dir))
	}
	if len(errs) > 0 {
		return result, errs
	}
	if len(infos) == 0 {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: "no classes found in manifests"}}
	}

	db := classdb.New()
	if err := object.RegisterRoot(db); err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("registering root class: %v", err)}}
	}
	if _, err := compiler.Register(db, infos); err != nil {
		return result, []error{convertRegisterError(err)}
	}
	result.DB = db

	return result, nil
}

// FindCUEFiles returns the .cue files directly inside dir. Subdirectories
// are separate CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: err.Error(),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// convertRegisterError maps class registration failures to error codes.
func convertRegisterError(err error) *LoadError {
	var inheritanceErr *compiler.InheritanceError
	switch {
	case errors.As(err, &inheritanceErr):
		return &LoadError{Code: ErrCodeInheritanceCycle, Message: err.Error()}
	case errors.Is(err, classdb.ErrDuplicateMember):
		return &LoadError{Code: ErrCodeDuplicateMember, Message: err.Error()}
	case errors.Is(err, classdb.ErrConflictingRegistration):
		return &LoadError{Code: ErrCodeClassName, Message: err.Error()}
	}
	return convertCompileError(err, "register")
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeScenario    = "E007" // Scenario file invalid
	ErrCodeJournal     = "E008" // Trace journal unreadable

	// Class manifest errors
	ErrCodeClassName       = "E101" // Missing or duplicated class name
	ErrCodeUnknownParent   = "E102" // Parent unknown or self-referential
	ErrCodeSaveName        = "E103" // Invalid save_name
	ErrCodeInvalidType     = "E104" // Unsupported argument type
	ErrCodeDuplicateMember = "E105" // Signal or method declared twice

	// Class graph errors
	ErrCodeInheritanceCycle = "E110" // Parent chain loops
	ErrCodeInvalidSignal    = "E111" // Malformed signal declaration
	ErrCodeInvalidMethod    = "E112" // Malformed method declaration
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "name":
		return ErrCodeClassName
	case field == "parent":
		return ErrCodeUnknownParent
	case field == "save_name":
		return ErrCodeSaveName
	case field == "type":
		return ErrCodeInvalidType
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.HasPrefix(field, "signals."):
		return ErrCodeInvalidSignal
	case strings.HasPrefix(field, "methods."):
		return ErrCodeInvalidMethod
	default:
		return ErrCodeGeneric
	}
}
