package backfill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackfillState_NewAndSave(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")

	s, err := LoadState(statePath)
	require.NoError(t, err)
	s.MarkProcessed("a.txt")
	s.MarkProcessed("b.txt")
	s.DocumentsExtracted = 2
	s.SeenContent("hash-a", "a.txt")

	require.NoError(t, s.Save())

	reloaded, err := LoadState(statePath)
	require.NoError(t, err)
	assert.True(t, reloaded.IsProcessed("a.txt"))
	assert.True(t, reloaded.IsProcessed("b.txt"))
	assert.Equal(t, 2, reloaded.DocumentsExtracted)

	first, dup := reloaded.SeenContent("hash-a", "c.txt")
	assert.True(t, dup)
	assert.Equal(t, "a.txt", first)
}

func TestBackfillState_IsProcessed(t *testing.T) {
	s := &BackfillState{}

	assert.False(t, s.IsProcessed("file1.txt"))

	s.MarkProcessed("file1.txt")
	s.MarkProcessed("file1.txt")

	assert.True(t, s.IsProcessed("file1.txt"))
	assert.False(t, s.IsProcessed("file2.txt"))
	assert.Len(t, s.FilesProcessed, 1)
}

func TestBackfillState_SeenContent(t *testing.T) {
	s := &BackfillState{}

	_, dup := s.SeenContent("h1", "a.txt")
	assert.False(t, dup, "first sighting should not be a duplicate")

	_, dup = s.SeenContent("h1", "a.txt")
	assert.False(t, dup, "same path should not be its own duplicate")

	first, dup := s.SeenContent("h1", "b.txt")
	assert.True(t, dup)
	assert.Equal(t, "a.txt", first)

	_, dup = s.SeenContent("doc-1:h1", "c.txt")
	assert.False(t, dup, "keys scoped to a document are independent of the bare hash")
}

func TestBackfillState_AddError(t *testing.T) {
	s := &BackfillState{}
	s.AddError("something went wrong")
	s.AddError("another error")

	require.Len(t, s.Errors, 2)
	assert.Equal(t, "something went wrong", s.Errors[0])
}

func TestBackfillState_SaveCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "nested", "dir", "state.json")

	s, err := LoadState(statePath)
	require.NoError(t, err)
	require.NoError(t, s.Save())

	_, err = os.Stat(statePath)
	assert.NoError(t, err, "state file not created in nested dir")
}

func TestLoadState_Corrupt(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(statePath, []byte("{not json"), 0o644))

	_, err := LoadState(statePath)
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	assert.Equal(t, filepath.Join(home, "test/path"), expandHome("~/test/path"))
	// Non-tilde paths pass through.
	assert.Equal(t, "/absolute/path", expandHome("/absolute/path"))
}
