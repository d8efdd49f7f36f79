package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/objcore/internal/classdb"
)

// ClassesOptions holds flags for the classes command.
type ClassesOptions struct {
	*RootOptions
}

// ClassSummary describes one registered class as the classes command
// prints it.
type ClassSummary struct {
	Name      string   `json:"name"`
	SaveName  string   `json:"save_name"`
	Ancestors []string `json:"ancestors"`
	Signals   []string `json:"signals"`
	Methods   []string `json:"methods"`
}

// ClassesResult is the output of the classes command.
type ClassesResult struct {
	Dir       string         `json:"dir"`
	FileCount int            `json:"file_count"`
	Classes   []ClassSummary `json:"classes"`
}

// NewClassesCommand creates the classes command.
func NewClassesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClassesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "classes <dir>",
		Short: "List the classes declared by CUE manifests",
		Long: `Compile the CUE class manifests in a directory and list each class
with its ancestry, signals and methods.

Signals and methods include everything inherited from ancestors. Manifests
with unknown parents, inheritance cycles or unsupported argument types are
rejected.

Examples:
  objcore classes ./classes
  objcore classes ./classes --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses(opts, args[0], cmd)
		},
	}

	return cmd
}

func runClasses(opts *ClassesOptions, dir string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	loaded, errs := LoadClasses(dir, LoadModeCollectAll)
	if len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, err := range errs {
			messages[i] = err.Error()
		}
		if err := out.Error(loadErrorCode(errs[0]), fmt.Sprintf("%d manifest error(s)", len(errs)), messages); err != nil {
			return err
		}
		if opts.Format != "json" {
			for _, msg := range messages {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", msg)
			}
		}
		return WrapExitError(ExitCommandError, "failed to load classes", errs[0])
	}

	result := ClassesResult{
		Dir:       dir,
		FileCount: loaded.FileCount,
		Classes:   make([]ClassSummary, 0, len(loaded.Classes)),
	}
	for _, info := range loaded.Classes {
		class, ok := loaded.DB.Lookup(info.Name)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("class %s was not registered", info.Name))
		}
		result.Classes = append(result.Classes, summarizeClass(class))
	}

	return out.Success(result)
}

func loadErrorCode(err error) string {
	if le, ok := err.(*LoadError); ok {
		return le.Code
	}
	return ErrCodeGeneric
}

func summarizeClass(c *classdb.Class) ClassSummary {
	s := ClassSummary{
		Name:      c.Name(),
		SaveName:  c.SaveName(),
		Ancestors: c.Ancestors(),
		Signals:   []string{},
		Methods:   []string{},
	}
	if s.Ancestors == nil {
		s.Ancestors = []string{}
	}
	for _, sig := range c.SignalList() {
		s.Signals = append(s.Signals, formatSignature(sig.Name, sig.Args, false))
	}
	for _, m := range c.MethodList() {
		s.Methods = append(s.Methods, formatSignature(m.Name, m.Args, m.Vararg))
	}
	return s
}

// formatSignature renders name(arg: type, ...). Untyped arguments print
// without a type.
func formatSignature(name string, args []classdb.ArgInfo, vararg bool) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range args {
		if a.Type == "" {
			parts = append(parts, a.Name)
			continue
		}
		parts = append(parts, a.Name+": "+a.Type)
	}
	if vararg {
		parts = append(parts, "...")
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// WriteText renders the classes one block each.
func (r ClassesResult) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "%d class(es) from %d file(s) in %s\n", len(r.Classes), r.FileCount, r.Dir)
	for _, c := range r.Classes {
		fmt.Fprintf(w, "\n%s", c.Name)
		if len(c.Ancestors) > 0 {
			fmt.Fprintf(w, " : %s", strings.Join(c.Ancestors, " : "))
		}
		fmt.Fprintln(w)
		if c.SaveName != c.Name {
			fmt.Fprintf(w, "  save name: %s\n", c.SaveName)
		}
		writeList(w, "signals", c.Signals)
		writeList(w, "methods", c.Methods)
	}
	return nil
}

func writeList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(w, "  %s: (none)\n", label)
		return
	}
	fmt.Fprintf(w, "  %s:\n", label)
	for _, item := range items {
		fmt.Fprintf(w, "    %s\n", item)
	}
}
