package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-assistant/internal/config"
)

// workspace is a temp directory holding a config file, knowledge base, and data dir.
type workspace struct {
	root       string
	configPath string
	kbDir      string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	root := t.TempDir()
	ws := workspace{
		root:       root,
		configPath: filepath.Join(root, "config.json"),
		kbDir:      filepath.Join(root, "knowledge_base"),
	}
	require.NoError(t, os.MkdirAll(ws.kbDir, 0o755))

	cfg := config.Config{
		EmbeddingProvider: config.EmbeddingHash,
		KnowledgeBaseDir:  ws.kbDir,
		DataDir:           filepath.Join(root, "data"),
		OutputDir:         filepath.Join(root, "output"),
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ws.configPath, data, 0o644))
	return ws
}

func (ws workspace) writeKnowledge(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(ws.kbDir, name), []byte(content), 0o644))
}

// runCLI executes the root command in-process and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}
