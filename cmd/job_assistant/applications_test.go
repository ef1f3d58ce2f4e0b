package main

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-assistant/internal/storage"
	"github.com/jonathan/job-assistant/internal/types"
)

func seedApplication(t *testing.T, ws workspace, title, company string) int64 {
	t.Helper()
	store, err := storage.Open(filepath.Join(ws.root, "data"))
	require.NoError(t, err)
	defer store.Close()

	rec := types.NewApplicationRecord("run-1", types.ApplicationState{
		JobURL:      "https://example.com/job",
		JobAnalysis: &types.JobAnalysis{Title: title, Company: company, Summary: "Build things."},
	})
	id, err := store.Save(context.Background(), rec)
	require.NoError(t, err)
	return id
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "abc", "0", "-3", "1.5"} {
		_, err := parseID(raw)
		assert.Error(t, err, raw)
	}
}

func TestApplicationsList_Empty(t *testing.T) {
	ws := newWorkspace(t)

	out, err := runCLI(t, "applications", "list", "--config", ws.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No applications found.")
}

func TestApplicationsLifecycle(t *testing.T) {
	ws := newWorkspace(t)
	id := seedApplication(t, ws, "Platform Engineer", "Acme")
	idArg := strconv.FormatInt(id, 10)

	out, err := runCLI(t, "applications", "list", "--config", ws.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "Platform Engineer")
	assert.Contains(t, out, types.StatusGenerated)

	out, err = runCLI(t, "applications", "status", idArg, types.StatusApplied, "--notes", "sent via referral", "--config", ws.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "marked applied")
	t.Cleanup(func() { statusNotes = "" })

	out, err = runCLI(t, "applications", "show", idArg, "--config", ws.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "sent via referral")
	assert.Contains(t, out, types.StatusApplied)
}

func TestApplicationsStatus_Invalid(t *testing.T) {
	ws := newWorkspace(t)

	_, err := runCLI(t, "applications", "status", "1", "hired", "--config", ws.configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")
}

func TestApplicationsShow_NotFound(t *testing.T) {
	ws := newWorkspace(t)

	_, err := runCLI(t, "applications", "show", "99", "--config", ws.configPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
