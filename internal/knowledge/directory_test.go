package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDirectory_ChunksSortedAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "skills_go.md", "## Languages\nGo, SQL")
	writeFile(t, dir, "cv_main.md", "Jane Doe\n## Summary\nBackend engineer")
	writeFile(t, dir, "ignored.txt", "## Not markdown\nskip me")

	d := NewDirectory(dir, nil)
	chunks, err := d.Chunks()
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "cv_main", chunks[0].Metadata.Source)
	assert.Equal(t, IntroSection, chunks[0].Metadata.Section)
	assert.Equal(t, "Summary", chunks[1].Metadata.Section)
	assert.Equal(t, "skills", chunks[2].Metadata.Category)
}

func TestDirectory_MissingDirectoryIsEmpty(t *testing.T) {
	d := NewDirectory(filepath.Join(t.TempDir(), "nope"), nil)
	chunks, err := d.Chunks()
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestIsKnowledgeEvent(t *testing.T) {
	assert.True(t, IsKnowledgeEvent(fsnotify.Event{Name: "kb/cv.md", Op: fsnotify.Write}))
	assert.True(t, IsKnowledgeEvent(fsnotify.Event{Name: "kb/cv.md", Op: fsnotify.Remove}))
	assert.False(t, IsKnowledgeEvent(fsnotify.Event{Name: "kb/cv.md", Op: fsnotify.Chmod}))
	assert.False(t, IsKnowledgeEvent(fsnotify.Event{Name: "kb/cv.md.swp", Op: fsnotify.Write}))
}

func TestWatch_CallsOnChangeAfterWrite(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, 50*time.Millisecond, func() { changed <- struct{}{} }, nil)
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "skills_new.md", "## Rust\nsome")

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected onChange after markdown write")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
