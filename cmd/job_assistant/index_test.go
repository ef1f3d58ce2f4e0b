package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexCommand(t *testing.T) {
	ws := newWorkspace(t)
	ws.writeKnowledge(t, "experience.md", "Intro line\n\n## Acme\nLed the payments team.\n")
	ws.writeKnowledge(t, "notes.txt", "ignored")

	out, err := runCLI(t, "index", "--config", ws.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 chunks")

	ws.writeKnowledge(t, "skills.md", "## Languages\nGo\n")

	// Existing index is kept without --force.
	out, err = runCLI(t, "index", "--config", ws.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 chunks")

	out, err = runCLI(t, "index", "--config", ws.configPath, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 3 chunks")
	t.Cleanup(func() { indexForce = false })
}

func TestIndexCommand_BadConfig(t *testing.T) {
	_, err := runCLI(t, "index", "--config", "/nonexistent/config.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
