package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ScenarioNotFoundError is returned when a referenced scenario file
// doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario file %q does not exist", e.Path)
}

// SuiteResult pairs one scenario with its outcome.
type SuiteResult struct {
	Path   string
	Name   string
	Result *Result
}

// RunFile loads and runs a single scenario file. A missing file is
// reported as a ScenarioNotFoundError so callers can distinguish it from
// a malformed scenario.
func RunFile(path string) (*SuiteResult, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path}
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return &SuiteResult{Path: path, Name: scenario.Name, Result: result}, nil
}

// FindScenarios returns the scenario YAML files directly under dir,
// sorted by name. Subdirectories are not descended into.
func FindScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// RunSuite loads and runs every scenario under dir, in name order.
// A load or execution error aborts the suite; assertion failures do not,
// they are reported through each scenario's Result.
func RunSuite(dir string) ([]SuiteResult, error) {
	paths, err := FindScenarios(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}

	results := make([]SuiteResult, 0, len(paths))
	for _, path := range paths {
		suite, err := RunFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, *suite)
	}
	return results, nil
}
