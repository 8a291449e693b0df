package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingIsEmpty(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Empty(t, idx.TaskIDs())
	assert.Equal(t, "", idx.Get("x"))
}

func TestSaveOnlyWhenDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal", FileName)
	idx, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, idx.Save())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "clean index must not be written")

	idx.Set("t2", "e2")
	idx.Set("t1", "e1")
	require.NoError(t, idx.Save())

	again, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, again.TaskIDs())
	assert.Equal(t, "e1", again.Get("t1"))

	again.Remove("t1")
	again.Remove("never")
	require.NoError(t, again.Save())

	last, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, last.TaskIDs())
}

func TestOpenCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0600))
	_, err := Open(path)
	assert.Error(t, err)
}
