package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document.json>",
		Short: "Validate a document file",
		Long: `Validate a canvas document file.

Checks the file against the document schema (field types, enum values,
version range, unknown fields), then verifies referential integrity:
no blank or duplicate ids, no connection endpoints referencing missing
components, no components on undeclared layers.

Exit codes:
  0 - Document valid
  1 - Document failed validation
  2 - Command error (file not found, unreadable)

Examples:
  easel validate diagram.json
  easel validate diagram.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	check, err := CheckDocumentFile(path)
	if err != nil {
		return commandError(formatter, err)
	}

	if check.Valid {
		return outputValidateSuccess(formatter, check)
	}
	return outputValidateFailure(formatter, check)
}

// outputValidateSuccess outputs a passing validation result.
func outputValidateSuccess(formatter *OutputFormatter, check DocumentCheck) error {
	if formatter.Format == "json" {
		return formatter.Success(check)
	}

	components, connections, infoCards := check.Doc.Snapshot().Counts()
	fmt.Fprintf(formatter.Writer, "✓ Document valid (schema v%d, %d components, %d connections, %d info cards)\n",
		check.Doc.SchemaVersion, components, connections, infoCards)
	return nil
}

// outputValidateFailure outputs every collected issue and converts the
// result to exit code 1.
func outputValidateFailure(formatter *OutputFormatter, check DocumentCheck) error {
	total := len(check.SchemaIssues) + len(check.IntegrityIssues)
	message := fmt.Sprintf("validation failed with %d issue(s)", total)

	if formatter.Format == "json" {
		code := ErrCodeIntegrity
		if len(check.SchemaIssues) > 0 {
			code = ErrCodeSchema
		}
		response := CLIResponse{
			Status: "error",
			Data:   check,
			Error:  &CLIError{Code: code, Message: message},
		}

		enc := json.NewEncoder(formatter.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range check.SchemaIssues {
		fmt.Fprintf(formatter.Writer, "  schema: %s\n", issue.Error())
	}
	for _, issue := range check.IntegrityIssues {
		fmt.Fprintf(formatter.Writer, "  integrity: %s\n", issue.Error())
	}
	fmt.Fprintln(formatter.Writer)

	return NewExitError(ExitFailure, message)
}
