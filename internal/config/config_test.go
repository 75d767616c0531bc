package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), c)
}

func TestLoadPartialFileOverridesOnlySetKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kernel.toml")
	require.NoError(t, os.WriteFile(path, []byte("[cache]\nslots = 128\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 128, c.Cache.Slots)
	require.Equal(t, int64(20), c.Sched.LatencyMS) // untouched default
}
