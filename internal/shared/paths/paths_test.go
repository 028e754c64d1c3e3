package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionDirRejectsEscapes(t *testing.T) {
	layout, err := NewLayout(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	for _, bad := range []string{"", ".", "..", "../x", "a/b", `a\b`} {
		_, err := layout.SessionDir(bad)
		assert.Error(t, err, bad)
	}

	dir, err := layout.SessionDir("u1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(layout.SessionsRoot, "u1"), dir)
}

func TestEnsureAndRemoveSessionDir(t *testing.T) {
	layout, err := NewLayout(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	dir, err := layout.EnsureSessionDir("u1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte("{}"), 0o600))

	require.NoError(t, layout.RemoveSessionDir("u1"))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// removing twice is not an error
	assert.NoError(t, layout.RemoveSessionDir("u1"))
}
