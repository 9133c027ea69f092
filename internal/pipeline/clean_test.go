package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortreel/internal/logging"
)

func makeRunDir(t *testing.T, root, name string, complete bool) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, audioDirName), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, runLogName), []byte("log"), 0o644))
	if complete {
		require.NoError(t, os.WriteFile(filepath.Join(dir, FinalArtifactName), []byte("mp4"), 0o644))
	}
	return dir
}

func TestCleanAbandoned(t *testing.T) {
	logger, err := logging.NewConsoleLogger()
	require.NoError(t, err)

	root := t.TempDir()
	complete := makeRunDir(t, root, "intro_20260830_120000", true)
	abandoned := makeRunDir(t, root, "intro_20260830_130000", false)

	removed, err := CleanAbandoned(root, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// The completed run keeps its artifact; the abandoned run is gone.
	_, err = os.Stat(filepath.Join(complete, FinalArtifactName))
	assert.NoError(t, err)
	_, err = os.Stat(abandoned)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanAbandonedMissingRoot(t *testing.T) {
	logger, err := logging.NewConsoleLogger()
	require.NoError(t, err)

	removed, err := CleanAbandoned(filepath.Join(t.TempDir(), "never_created"), logger)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCleanAbandonedIgnoresFiles(t *testing.T) {
	logger, err := logging.NewConsoleLogger()
	require.NoError(t, err)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644))

	removed, err := CleanAbandoned(root, logger)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
