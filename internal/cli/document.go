package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/easelhq/easel/internal/docstore"
	"github.com/easelhq/easel/internal/integrity"
	"github.com/easelhq/easel/internal/schema"
)

// LoadError is a document loading failure with a response code.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DocumentCheck is the outcome of reading and checking one document
// file. All issues are collected, nothing fails fast. Doc only carries a
// document when the schema found nothing to complain about.
type DocumentCheck struct {
	Valid           bool              `json:"valid"`
	SchemaIssues    []schema.Issue    `json:"schemaIssues,omitempty"`
	IntegrityIssues []integrity.Issue `json:"integrityIssues,omitempty"`
	Doc             docstore.Document `json:"-"`
}

// CheckDocumentFile reads a document file and runs schema validation
// followed by the referential integrity check. A returned error means
// the file itself could not be read; everything the document gets wrong
// lands in the check result instead.
func CheckDocumentFile(path string) (DocumentCheck, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return DocumentCheck{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("document not found: %s", path)}
	}
	if err != nil {
		return DocumentCheck{}, &LoadError{Code: ErrCodeIO, Message: fmt.Sprintf("error accessing document: %v", err)}
	}
	if info.IsDir() {
		return DocumentCheck{}, &LoadError{Code: ErrCodeIO, Message: fmt.Sprintf("not a file: %s", path)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return DocumentCheck{}, &LoadError{Code: ErrCodeIO, Message: fmt.Sprintf("error reading document: %v", err)}
	}

	var check DocumentCheck

	issues, err := schema.ValidateDocument(data)
	if err != nil {
		// Not JSON at all. The file is the thing under test, so this is
		// a validation outcome rather than a command error.
		check.SchemaIssues = []schema.Issue{{Message: err.Error()}}
		return check, nil
	}
	if len(issues) > 0 {
		check.SchemaIssues = issues
		return check, nil
	}

	doc, err := docstore.Decode(data)
	if err != nil {
		check.SchemaIssues = []schema.Issue{{Message: err.Error()}}
		return check, nil
	}
	check.Doc = doc

	report := integrity.CheckDocument(doc.Snapshot(), doc.Layers)
	check.IntegrityIssues = report.Errors
	check.Valid = report.Valid
	return check, nil
}

// commandError reports a load failure through the formatter and converts
// it to exit code 2.
func commandError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return WrapExitError(ExitCommandError, loadErr.Message, err)
	}
	_ = formatter.Error(ErrCodeIO, err.Error(), nil)
	return WrapExitError(ExitCommandError, "command failed", err)
}
