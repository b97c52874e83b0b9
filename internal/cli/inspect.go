package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/easelhq/easel/internal/docstore"
	"github.com/easelhq/easel/internal/integrity"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Revisions bool
}

// DocumentReport summarizes one document for inspect output.
type DocumentReport struct {
	ID            string                  `json:"id,omitempty"`
	Name          string                  `json:"name,omitempty"`
	SchemaVersion int                     `json:"schemaVersion"`
	SavedAt       time.Time               `json:"savedAt"`
	Components    int                     `json:"components"`
	Connections   int                     `json:"connections"`
	InfoCards     int                     `json:"infoCards"`
	Layers        int                     `json:"layers"`
	RevisionCount int                     `json:"revisionCount,omitempty"`
	Revisions     []docstore.RevisionInfo `json:"revisions,omitempty"`
	Integrity     integrity.Report        `json:"integrity"`
}

// InspectResult is the full inspect payload.
type InspectResult struct {
	Source    string           `json:"source"`
	Documents []DocumentReport `json:"documents"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <db|document.json>",
		Short: "Show store or document contents",
		Long: `Show entity counts, schema versions and integrity findings.

A path ending in .json is read as a single document file; anything else
is opened as a document store and every stored document is reported.
Reading is tolerant: version 1 documents and files with extra fields
are inspected as-is. Integrity findings are reported, never fatal; use
validate when a bad document should fail the command.

Exit codes:
  0 - Inspection completed
  2 - Command error (path not found, unreadable database)

Examples:
  easel inspect easel.db
  easel inspect easel.db --revisions
  easel inspect diagram.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Revisions, "revisions", false, "list every revision per document")

	return cmd
}

func runInspect(opts *InspectOptions, target string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(target); os.IsNotExist(err) {
		msg := fmt.Sprintf("path not found: %s", target)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	var (
		result InspectResult
		err    error
	)
	if strings.EqualFold(filepath.Ext(target), ".json") {
		result, err = inspectFile(target)
	} else {
		result, err = inspectStore(cmd, opts, target)
	}
	if err != nil {
		return commandError(formatter, err)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputInspectText(formatter, result)
}

// inspectFile reports on a single document file, read tolerantly.
func inspectFile(path string) (InspectResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return InspectResult{}, &LoadError{Code: ErrCodeIO, Message: fmt.Sprintf("error reading document: %v", err)}
	}

	doc, err := docstore.Decode(data)
	if err != nil {
		return InspectResult{}, &LoadError{Code: ErrCodeSchema, Message: err.Error()}
	}

	return InspectResult{
		Source:    path,
		Documents: []DocumentReport{buildReport("", "", doc, 0, nil)},
	}, nil
}

// inspectStore reports on every document in a store database.
func inspectStore(cmd *cobra.Command, opts *InspectOptions, path string) (InspectResult, error) {
	st, err := docstore.Open(path)
	if err != nil {
		return InspectResult{}, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("failed to open store: %v", err)}
	}
	defer st.Close()

	ctx := cmd.Context()
	infos, err := st.ListDocuments(ctx)
	if err != nil {
		return InspectResult{}, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("failed to list documents: %v", err)}
	}

	result := InspectResult{Source: path, Documents: make([]DocumentReport, 0, len(infos))}
	for _, info := range infos {
		doc, err := st.LoadDocument(ctx, info.ID)
		if err != nil {
			return InspectResult{}, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("failed to load document %q: %v", info.ID, err)}
		}

		var revisions []docstore.RevisionInfo
		if opts.Revisions {
			revisions, err = st.Revisions(ctx, info.ID)
			if err != nil {
				return InspectResult{}, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("failed to list revisions of %q: %v", info.ID, err)}
			}
		}

		result.Documents = append(result.Documents, buildReport(info.ID, info.Name, doc, info.Revisions, revisions))
	}
	return result, nil
}

func buildReport(id, name string, doc docstore.Document, revisionCount int, revisions []docstore.RevisionInfo) DocumentReport {
	return DocumentReport{
		ID:            id,
		Name:          name,
		SchemaVersion: doc.SchemaVersion,
		SavedAt:       doc.SavedAt,
		Components:    len(doc.Components),
		Connections:   len(doc.Connections),
		InfoCards:     len(doc.InfoCards),
		Layers:        len(doc.Layers),
		RevisionCount: revisionCount,
		Revisions:     revisions,
		Integrity:     integrity.CheckDocument(doc.Snapshot(), doc.Layers),
	}
}

func outputInspectText(formatter *OutputFormatter, result InspectResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Source: %s (%d document(s))\n", result.Source, len(result.Documents))
	for _, report := range result.Documents {
		fmt.Fprintln(w)
		writeReportText(w, report)
	}
	return nil
}

func writeReportText(w io.Writer, report DocumentReport) {
	switch {
	case report.ID != "" && report.Name != "":
		fmt.Fprintf(w, "Document: %s (%s)\n", report.ID, report.Name)
	case report.ID != "":
		fmt.Fprintf(w, "Document: %s\n", report.ID)
	default:
		fmt.Fprintln(w, "Document:")
	}

	fmt.Fprintf(w, "  Schema version: %d\n", report.SchemaVersion)
	fmt.Fprintf(w, "  Saved at:       %s\n", report.SavedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  Entities:       %d components, %d connections, %d info cards\n",
		report.Components, report.Connections, report.InfoCards)
	fmt.Fprintf(w, "  Layers:         %d\n", report.Layers)
	if report.RevisionCount > 0 {
		fmt.Fprintf(w, "  Revisions:      %d\n", report.RevisionCount)
	}

	if report.Integrity.Valid {
		fmt.Fprintln(w, "  Integrity:      ✓ valid")
	} else {
		fmt.Fprintf(w, "  Integrity:      ✗ %d issue(s)\n", len(report.Integrity.Errors))
		for _, issue := range report.Integrity.Errors {
			fmt.Fprintf(w, "    %s\n", issue.Error())
		}
	}

	for _, rev := range report.Revisions {
		fmt.Fprintf(w, "  rev %d  %s  %s\n", rev.Rev, rev.SavedAt.UTC().Format(time.RFC3339), rev.ContentHash)
	}
}
