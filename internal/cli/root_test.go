package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "easel", cmd.Use)
	assert.Equal(t, version, cmd.Version)
	assert.Contains(t, cmd.Long, "document stores")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"init", "validate", "inspect", "export", "import", "scenario"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInitCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	initCmd, _, err := cmd.Find([]string{"init"})
	require.NoError(t, err)

	sampleFlag := initCmd.Flags().Lookup("sample")
	require.NotNil(t, sampleFlag)
	assert.Equal(t, "false", sampleFlag.DefValue)
}

func TestInspectCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	inspectCmd, _, err := cmd.Find([]string{"inspect"})
	require.NoError(t, err)

	revisionsFlag := inspectCmd.Flags().Lookup("revisions")
	require.NotNil(t, revisionsFlag)
	assert.Equal(t, "false", revisionsFlag.DefValue)
}

func TestExportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	exportCmd, _, err := cmd.Find([]string{"export"})
	require.NoError(t, err)

	outputFlag := exportCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)

	idFlag := exportCmd.Flags().Lookup("id")
	require.NotNil(t, idFlag)
	// --id is optional when the store has a single document
	assert.Equal(t, "", idFlag.DefValue)
}

func TestImportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	importCmd, _, err := cmd.Find([]string{"import"})
	require.NoError(t, err)

	idFlag := importCmd.Flags().Lookup("id")
	require.NotNil(t, idFlag)

	nameFlag := importCmd.Flags().Lookup("name")
	require.NotNil(t, nameFlag)
}

func TestScenarioCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	scenarioCmd, _, err := cmd.Find([]string{"scenario"})
	require.NoError(t, err)

	updateFlag := scenarioCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	configFlag := scenarioCmd.Flags().Lookup("config")
	require.NotNil(t, configFlag)
}

func TestCommandHelp(t *testing.T) {
	cmd := NewRootCommand()

	// Verify help text contains key elements
	assert.Contains(t, cmd.Short, "Easel")
	assert.Contains(t, cmd.Long, "scenarios")
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "validate", "doc.json"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
