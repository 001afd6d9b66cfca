package setup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeVenvDir lays out an empty but valid-looking virtual environment.
func makeVenvDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	envDir := filepath.Join(dir, ".venv")
	require.NoError(t, os.MkdirAll(filepath.Join(envDir, "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, "bin", "python"), []byte("#!/bin/sh\n"), 0755))
	return envDir
}

func clearVirtualEnv(t *testing.T) {
	t.Helper()
	t.Setenv("VIRTUAL_ENV", "placeholder")
	os.Unsetenv("VIRTUAL_ENV")
}

func TestDetectEnvPrefersActivatedEnvironment(t *testing.T) {
	envDir := makeVenvDir(t)
	t.Setenv("VIRTUAL_ENV", envDir)

	env := DetectEnv("somewhere/else")
	assert.True(t, env.Active)
	assert.Equal(t, envDir, env.Dir)
	assert.Equal(t, filepath.Join(envDir, "bin", "python"), env.Python)
	assert.True(t, env.Valid())
}

func TestDetectEnvFindsEnvDirOnDisk(t *testing.T) {
	clearVirtualEnv(t)
	envDir := makeVenvDir(t)

	env := DetectEnv(envDir)
	assert.False(t, env.Active)
	assert.Equal(t, envDir, env.Dir)
	assert.True(t, env.Valid())
}

func TestDetectEnvNothingFound(t *testing.T) {
	clearVirtualEnv(t)
	env := DetectEnv(filepath.Join(t.TempDir(), "missing"))
	assert.False(t, env.Valid())
	assert.Empty(t, env.Python)
}

func TestPythonEnvVersion(t *testing.T) {
	fake := &fakeCommander{script: func(name string, args []string) (CmdResult, error) {
		return CmdResult{Stdout: "Python 3.10.13\n"}, nil
	}}
	env := PythonEnv{Dir: ".venv", Python: ".venv/bin/python"}
	version, err := env.Version(context.Background(), fake)
	require.NoError(t, err)
	assert.Equal(t, "3.10.13", version)
}
