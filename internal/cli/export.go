package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/easelhq/easel/internal/docstore"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
	ID     string
}

// ExportResult reports where a document was exported.
type ExportResult struct {
	Document string `json:"document"`
	Path     string `json:"path"`
	Bytes    int    `json:"bytes"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <db>",
		Short: "Export a document to JSON",
		Long: `Export a stored document as pretty-printed JSON.

The exported file carries a refreshed savedAt stamp. Without -o the
document is written to stdout as-is, ready for piping; with -o it is
written to the given file and a summary is printed instead.

When the store holds a single document --id may be omitted; with
several documents it selects which one to export.

Exit codes:
  0 - Document exported
  2 - Command error (store or document not found, write failure)

Examples:
  easel export easel.db
  easel export easel.db -o diagram.json
  easel export easel.db --id sample -o sample.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the document to this file")
	cmd.Flags().StringVar(&opts.ID, "id", "", "document id to export")

	return cmd
}

func runExport(opts *ExportOptions, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		msg := fmt.Sprintf("store not found: %s", dbPath)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	st, err := docstore.Open(dbPath)
	if err != nil {
		msg := fmt.Sprintf("failed to open store: %v", err)
		_ = formatter.Error(ErrCodeStore, msg, nil)
		return WrapExitError(ExitCommandError, msg, err)
	}
	defer st.Close()

	ctx := cmd.Context()

	id := opts.ID
	if id == "" {
		id, err = soleDocumentID(cmd, st)
		if err != nil {
			return commandError(formatter, err)
		}
	}

	doc, err := st.LoadDocument(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		msg := fmt.Sprintf("document not found: %s", id)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		msg := fmt.Sprintf("failed to load document %q: %v", id, err)
		_ = formatter.Error(ErrCodeStore, msg, nil)
		return WrapExitError(ExitCommandError, msg, err)
	}

	data, err := docstore.Export(doc)
	if err != nil {
		msg := fmt.Sprintf("failed to export document %q: %v", id, err)
		_ = formatter.Error(ErrCodeIO, msg, nil)
		return WrapExitError(ExitCommandError, msg, err)
	}

	if opts.Output == "" {
		// The document itself is the output, in any format mode.
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		msg := fmt.Sprintf("failed to write %s: %v", opts.Output, err)
		_ = formatter.Error(ErrCodeIO, msg, nil)
		return WrapExitError(ExitCommandError, msg, err)
	}

	result := ExportResult{Document: id, Path: opts.Output, Bytes: len(data)}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Exported %q to %s (%d bytes)\n", id, opts.Output, len(data))
	return nil
}

// soleDocumentID resolves the implicit document when --id is omitted:
// unambiguous only when the store holds exactly one.
func soleDocumentID(cmd *cobra.Command, st *docstore.Store) (string, error) {
	infos, err := st.ListDocuments(cmd.Context())
	if err != nil {
		return "", &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("failed to list documents: %v", err)}
	}

	switch len(infos) {
	case 0:
		return "", &LoadError{Code: ErrCodeNotFound, Message: "store has no documents"}
	case 1:
		return infos[0].ID, nil
	default:
		ids := make([]string, len(infos))
		for i, info := range infos {
			ids[i] = info.ID
		}
		return "", &LoadError{
			Code:    ErrCodeAmbiguous,
			Message: fmt.Sprintf("store has %d documents, pass --id (one of: %s)", len(infos), strings.Join(ids, ", ")),
		}
	}
}
