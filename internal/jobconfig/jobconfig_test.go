package jobconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-foundations/jobsystem"
)

func TestWriteLoadRoundTrip(t *testing.T) {
	cfg := jobsystem.Config{
		NumThreads:  4,
		JobsPerPool: 1024,
		PackedIDs:   true,
		Debug:       true,
	}

	path := filepath.Join(t.TempDir(), "jobsystem.yaml")
	require.NoError(t, Write(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestLoadMissingFieldsFallBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobsystem.yaml")
	require.NoError(t, Write(path, jobsystem.Config{}))

	loaded, err := Load(path)
	require.NoError(t, err)

	defaults := jobsystem.DefaultConfig()
	require.Equal(t, defaults.NumThreads, loaded.NumThreads)
	require.Equal(t, defaults.JobsPerPool, loaded.JobsPerPool)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}
