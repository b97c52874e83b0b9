package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/easelhq/easel/internal/docstore"
	"github.com/easelhq/easel/internal/sample"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Sample bool
}

// InitResult reports what init created.
type InitResult struct {
	Path     string `json:"path"`
	Seeded   bool   `json:"seeded"`
	Document string `json:"document,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init <db>",
		Short: "Create a document store",
		Long: `Create a new document store database.

The database is created with the current schema; an existing file is
never touched. With --sample the deterministic sample document is
seeded as the first document.

Exit codes:
  0 - Store created
  2 - Command error (path exists, cannot create)

Examples:
  easel init easel.db
  easel init easel.db --sample`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Sample, "sample", false, "seed the sample document")

	return cmd
}

func runInit(opts *InitOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(path); err == nil {
		msg := fmt.Sprintf("path already exists: %s", path)
		_ = formatter.Error(ErrCodeExists, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	st, err := docstore.Open(path)
	if err != nil {
		msg := fmt.Sprintf("failed to create store: %v", err)
		_ = formatter.Error(ErrCodeStore, msg, nil)
		return WrapExitError(ExitCommandError, msg, err)
	}
	defer st.Close()

	result := InitResult{Path: path}
	if opts.Sample {
		doc := sample.Document()
		name, _ := doc.Metadata["title"].(string)
		if err := st.SaveDocument(cmd.Context(), sample.DocumentID, name, doc); err != nil {
			msg := fmt.Sprintf("failed to seed sample document: %v", err)
			_ = formatter.Error(ErrCodeStore, msg, nil)
			return WrapExitError(ExitCommandError, msg, err)
		}
		result.Seeded = true
		result.Document = sample.DocumentID
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Created document store at %s\n", path)
	if result.Seeded {
		fmt.Fprintf(formatter.Writer, "✓ Seeded document %q\n", result.Document)
	}
	return nil
}
