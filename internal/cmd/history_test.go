package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeHistoryConfig writes a config file with history enabled at a temp
// database path and returns the config path.
func writeHistoryConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	configPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("history:\n  enabled: true\n  db_path: %s\n", dbPath)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestHistoryCommandRecordsAndLists(t *testing.T) {
	configPath := writeHistoryConfig(t)

	sourceDir := t.TempDir()
	targetDir := t.TempDir()
	writeFiles(t, sourceDir, "a.wav")
	writeFiles(t, targetDir, "a.txt")

	_, err := runCLI(t, "match", sourceDir, targetDir, "--config", configPath)
	require.NoError(t, err)

	out, err := runCLI(t, "history", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "directory/name")
	assert.Contains(t, out, "matched 1")
}

func TestHistoryCommandShowsRunPairs(t *testing.T) {
	configPath := writeHistoryConfig(t)

	sourceDir := t.TempDir()
	targetDir := t.TempDir()
	writeFiles(t, sourceDir, "a.wav")
	writeFiles(t, targetDir, "a.txt")

	_, err := runCLI(t, "match", sourceDir, targetDir, "--config", configPath)
	require.NoError(t, err)

	out, err := runCLI(t, "history", "unknown-run-id", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "no pairs recorded")
}

func TestHistoryCommandEmpty(t *testing.T) {
	out, err := runCLI(t, "history", "--config", writeHistoryConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "no runs recorded yet")
}

func TestHistoryCommandDisabled(t *testing.T) {
	_, err := runCLI(t, "history", "--config", writeTestConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}
