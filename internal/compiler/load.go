package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/objcore/internal/classdb"
)

// LoadValue builds the CUE value of the given files, resolved relative to
// dir. With no files, every top-level .cue file in dir is loaded, so a
// manifest needs no package clause.
func LoadValue(dir string, files ...string) (cue.Value, error) {
	args := files
	if len(args) == 0 {
		var err error
		if args, err = manifestFiles(dir); err != nil {
			return cue.Value{}, err
		}
	}

	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	// Conflicts inside fields only surface on validation.
	if err := value.Validate(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return value, nil
}

// manifestFiles lists the .cue files directly inside dir, sorted by name.
func manifestFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading manifest directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files in %s", dir)
	}
	return files, nil
}

// CompileManifest compiles every class under the top-level "class" field.
// With failFast it stops at the first error; otherwise it returns every
// class that compiled along with all errors.
func CompileManifest(v cue.Value, failFast bool) ([]classdb.ClassInfo, []error) {
	classesVal := v.LookupPath(cue.ParsePath("class"))
	if !classesVal.Exists() {
		return nil, nil
	}

	iter, err := classesVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var (
		infos []classdb.ClassInfo
		errs  []error
	)
	for iter.Next() {
		info, err := CompileClass(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("class.%s: %w", iter.Label(), err))
			if failFast {
				return infos, errs
			}
			continue
		}
		infos = append(infos, *info)
	}
	return infos, errs
}
