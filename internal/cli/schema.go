package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sysa/internal/catalog"
	"github.com/roach88/sysa/internal/compiler"
	"github.com/roach88/sysa/internal/schema"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Standalone bool // print the file's slots without the catalog schema
}

// SlotInfo is one slot in schema output.
type SlotInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Type string `json:"type"`
	Doc  string `json:"doc,omitempty"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema [file.cue]",
		Short: "Compile and print the slot schema",
		Long: `Print the slot schema the run command uses.

With a CUE file, its slots are compiled and merged into the catalog schema,
exactly as "sysa run --schema" does. Conflicting declarations are errors.

Examples:
  sysa schema
  sysa schema extra.cue
  sysa schema extra.cue --standalone --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runSchema(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Standalone, "standalone", false, "print only the file's slots")

	return cmd
}

func runSchema(opts *SchemaOptions, path string, cmd *cobra.Command) error {
	var (
		sch *schema.Schema
		err error
	)
	switch {
	case path == "":
		sch = catalog.Schema()
	case opts.Standalone:
		sch, err = compiler.CompileSchemaFile(path)
	default:
		sch, err = buildSchema(path)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile schema", err)
	}

	slots := make([]SlotInfo, 0, sch.Len())
	for _, sl := range sch.Slots() {
		slots = append(slots, SlotInfo{Name: sl.Name, Kind: string(sl.Kind), Type: string(sl.Elem), Doc: sl.Doc})
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeResponse(w, map[string]any{"slots": slots}, nil)
	}

	heading.Fprintf(w, "%d slots\n", len(slots))
	for _, s := range slots {
		line := fmt.Sprintf("  %-14s %-6s %s", s.Name, s.Kind, s.Type)
		if s.Doc != "" {
			line += "  // " + s.Doc
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
