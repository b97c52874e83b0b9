package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easelhq/easel/internal/docstore"
	"github.com/easelhq/easel/internal/sample"
)

// writeSampleDocument exports the built-in sample document to a file and
// returns its path.
func writeSampleDocument(t *testing.T, dir string) string {
	t.Helper()

	data, err := docstore.Export(sample.Document())
	require.NoError(t, err)

	path := filepath.Join(dir, "sample.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestValidateValidDocument(t *testing.T) {
	path := writeSampleDocument(t, t.TempDir())

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ Document valid")
	assert.Contains(t, output, "4 components")
}

func TestValidateValidDocumentJSON(t *testing.T) {
	path := writeSampleDocument(t, t.TempDir())

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestValidateMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.json")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "document not found")
}

func TestValidateNotJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "garbage.json")
	require.NoError(t, os.WriteFile(path, []byte("not a document"), 0o644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	// A broken file is a validation failure, not a command error.
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ Validation failed")
	assert.Contains(t, buf.String(), "schema:")
}

func TestValidateSchemaViolation(t *testing.T) {
	tmpDir := t.TempDir()
	doc := `{
  "schemaVersion": 99,
  "components": [{"id": "c1", "type": "service", "x": "left", "y": 0}]
}`
	path := filepath.Join(tmpDir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	output := buf.String()
	assert.Contains(t, output, "✗ Validation failed")
	// Both violations are collected, not fail-fast
	assert.Contains(t, output, "schemaVersion")
	assert.Contains(t, output, "components.0.x")
}

func TestValidateSchemaViolationJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schemaVersion": 99}`), 0o644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)

	var resp CLIResponse
	jsonErr := json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, jsonErr)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSchema, resp.Error.Code)
}

func TestValidateIntegrityViolation(t *testing.T) {
	tmpDir := t.TempDir()
	doc := `{
  "schemaVersion": 2,
  "components": [{"id": "c1", "type": "service", "x": 0, "y": 0}],
  "connections": [{"id": "e1", "sourceId": "c1", "targetId": "ghost", "type": "data-flow"}]
}`
	path := filepath.Join(tmpDir, "dangling.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "integrity:")
	assert.Contains(t, output, "missing_target")
	assert.Contains(t, output, "ghost")
}

func TestValidateIntegrityViolationJSON(t *testing.T) {
	tmpDir := t.TempDir()
	doc := `{
  "schemaVersion": 2,
  "connections": [{"id": "e1", "sourceId": "a", "targetId": "b", "type": "data-flow"}]
}`
	path := filepath.Join(tmpDir, "dangling.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)

	var resp CLIResponse
	jsonErr := json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, jsonErr)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	// No schema issues, so the error code reflects the integrity stage.
	assert.Equal(t, ErrCodeIntegrity, resp.Error.Code)
}

func TestCheckDocumentFile(t *testing.T) {
	path := writeSampleDocument(t, t.TempDir())

	check, err := CheckDocumentFile(path)
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.Empty(t, check.SchemaIssues)
	assert.Empty(t, check.IntegrityIssues)
	assert.Equal(t, docstore.CurrentSchemaVersion, check.Doc.SchemaVersion)
}

func TestCheckDocumentFileDirectory(t *testing.T) {
	_, err := CheckDocumentFile(t.TempDir())
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeIO, loadErr.Code)
}
