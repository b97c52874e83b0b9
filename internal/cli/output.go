package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation or scenario failure
	ExitCommandError = 2 // Command error (missing files, unreadable database, etc.)
)

// Error codes reported in CLI responses.
const (
	ErrCodeNotFound  = "E_NOT_FOUND" // file or document does not exist
	ErrCodeExists    = "E_EXISTS"    // target already exists
	ErrCodeIO        = "E_IO"        // file read or write failure
	ErrCodeStore     = "E_STORE"     // database open, read or write failure
	ErrCodeSchema    = "E_SCHEMA"    // document failed schema validation
	ErrCodeIntegrity = "E_INTEGRITY" // document failed referential checks
	ErrCodeScenario  = "E_SCENARIO"  // scenario load or execution failure
	ErrCodeAmbiguous = "E_AMBIGUOUS" // several candidates, none selected
)

// ExitError is an error with a specific exit code. Commands return it
// after printing their own diagnostics so main can exit accordingly.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string
	Err     error // underlying cause, optional
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure for anything that is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostic output; defaults to Writer
	Verbose   bool
}

// CLIResponse is the envelope for JSON output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // result payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError carries error details in JSON responses.
type CLIError struct {
	Code    string `json:"code"`              // one of the ErrCode constants
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// newFormatter builds the formatter every command starts from: results on
// stdout, diagnostics on stderr.
func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   opts.Verbose,
	}
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: data})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line when verbose mode is on. Output
// goes to ErrWriter so JSON on stdout stays intact.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
