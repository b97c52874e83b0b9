package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/easelhq/easel/internal/docstore"
	"github.com/easelhq/easel/internal/persist"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	ID   string
	Name string
}

// ImportResult reports what import saved.
type ImportResult struct {
	Document string `json:"document"`
	Name     string `json:"name,omitempty"`
	Path     string `json:"path"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <db> <document.json>",
		Short: "Import a document file into a store",
		Long: `Validate a document file and save it into a store.

The file must pass schema validation and the referential integrity
check before anything is written; a rejected document leaves the store
untouched. The save goes through the persistence coordinator and
appends a new revision. The database is created when it does not exist
yet.

The document id defaults to the file name without extension, the
display name to the document's metadata title.

Exit codes:
  0 - Document imported
  1 - Document failed validation
  2 - Command error (file not found, save failure)

Examples:
  easel import easel.db diagram.json
  easel import easel.db diagram.json --id payments --name "Payment flow"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "document id (default: file name)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (default: metadata title)")

	return cmd
}

func runImport(opts *ImportOptions, dbPath, docPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	check, err := CheckDocumentFile(docPath)
	if err != nil {
		return commandError(formatter, err)
	}
	if !check.Valid {
		return outputValidateFailure(formatter, check)
	}

	id := opts.ID
	if id == "" {
		base := filepath.Base(docPath)
		id = strings.TrimSuffix(base, filepath.Ext(base))
	}
	name := opts.Name
	if name == "" {
		name, _ = check.Doc.Metadata["title"].(string)
	}

	st, err := docstore.Open(dbPath)
	if err != nil {
		msg := fmt.Sprintf("failed to open store: %v", err)
		_ = formatter.Error(ErrCodeStore, msg, nil)
		return WrapExitError(ExitCommandError, msg, err)
	}
	defer st.Close()

	// All writes go through the coordinator, same as the application's
	// own save path.
	coordinator := persist.New(persist.WithLogger(slog.Default()))
	defer coordinator.Close()

	doc := check.Doc
	ticket := coordinator.Enqueue("import "+id, func(ctx context.Context) error {
		return st.SaveDocument(ctx, id, name, doc)
	})
	if err := ticket.Wait(cmd.Context()); err != nil {
		msg := fmt.Sprintf("failed to save document %q: %v", id, err)
		_ = formatter.Error(ErrCodeStore, msg, nil)
		return WrapExitError(ExitCommandError, msg, err)
	}

	formatter.VerboseLog("saved %q (%d components) into %s", id, len(doc.Components), dbPath)

	result := ImportResult{Document: id, Name: name, Path: dbPath}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %q into %s\n", id, dbPath)
	return nil
}
