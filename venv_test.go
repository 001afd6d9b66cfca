package setup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relaxDiskCheck(t *testing.T) {
	t.Helper()
	old := minFreeEnvSpace
	minFreeEnvSpace = 0
	t.Cleanup(func() { minFreeEnvSpace = old })
}

func TestEnsureEnvReusesExistingEnvironment(t *testing.T) {
	clearVirtualEnv(t)
	envDir := makeVenvDir(t)
	fake := &fakeCommander{}
	config := &Config{EnvDir: envDir, PythonVersion: "3.10"}

	env, err := EnsureEnv(context.Background(), fake, config)
	require.NoError(t, err)
	assert.True(t, env.Valid())
	// idempotent: nothing is executed, nothing recreated
	assert.Empty(t, fake.calls)
}

func TestEnsureEnvUsesActivatedEnvironment(t *testing.T) {
	envDir := makeVenvDir(t)
	t.Setenv("VIRTUAL_ENV", envDir)
	fake := &fakeCommander{}

	env, err := EnsureEnv(context.Background(), fake, &Config{EnvDir: "ignored"})
	require.NoError(t, err)
	assert.True(t, env.Active)
	assert.Empty(t, fake.calls)
}

func TestEnsureEnvCreatesWithUv(t *testing.T) {
	clearVirtualEnv(t)
	relaxDiskCheck(t)
	envDir := filepath.Join(t.TempDir(), ".venv")
	fake := &fakeCommander{script: func(name string, args []string) (CmdResult, error) {
		if name == "uv" && args[0] == "--version" {
			return CmdResult{Stdout: "uv 0.4.12\n"}, nil
		}
		if name == "uv" && args[0] == "venv" {
			// uv lays out the interpreter
			target := args[len(args)-1]
			if err := os.MkdirAll(filepath.Join(target, "bin"), 0755); err != nil {
				return CmdResult{}, err
			}
			return CmdResult{}, os.WriteFile(filepath.Join(target, "bin", "python"), nil, 0755)
		}
		return CmdResult{ExitCode: 1}, nil
	}}
	config := &Config{EnvDir: envDir, PythonVersion: "3.10"}

	env, err := EnsureEnv(context.Background(), fake, config)
	require.NoError(t, err)
	assert.True(t, env.Valid())
	require.Len(t, fake.calls, 2)
	assert.Equal(t, []string{"venv", "--python", "3.10", envDir}, fake.calls[1].Args)
}

func TestEnsureEnvFallsBackToVenvModule(t *testing.T) {
	clearVirtualEnv(t)
	relaxDiskCheck(t)
	envDir := filepath.Join(t.TempDir(), ".venv")
	fake := &fakeCommander{script: func(name string, args []string) (CmdResult, error) {
		if name == "uv" {
			return CmdResult{ExitCode: 127}, nil
		}
		if name == "python3" {
			target := args[len(args)-1]
			if err := os.MkdirAll(filepath.Join(target, "bin"), 0755); err != nil {
				return CmdResult{}, err
			}
			return CmdResult{}, os.WriteFile(filepath.Join(target, "bin", "python"), nil, 0755)
		}
		return CmdResult{ExitCode: 1}, nil
	}}

	env, err := EnsureEnv(context.Background(), fake, &Config{EnvDir: envDir, PythonVersion: "3.10"})
	require.NoError(t, err)
	assert.True(t, env.Valid())
	assert.Equal(t, "python3", fake.calls[len(fake.calls)-1].Name)
}

func TestEnsureEnvBrokenDirDeclined(t *testing.T) {
	clearVirtualEnv(t)
	envDir := filepath.Join(t.TempDir(), ".venv")
	require.NoError(t, os.MkdirAll(envDir, 0755)) // no interpreter inside

	oldStdin := stdin
	stdin = strings.NewReader("n\n")
	t.Cleanup(func() { stdin = oldStdin })

	fake := &fakeCommander{}
	_, err := EnsureEnv(context.Background(), fake, &Config{EnvDir: envDir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "left untouched")
	assert.True(t, dirExists(envDir))
	assert.Empty(t, fake.calls)
}

func TestEnsureEnvBrokenDirRecreatedWithYes(t *testing.T) {
	clearVirtualEnv(t)
	relaxDiskCheck(t)
	envDir := filepath.Join(t.TempDir(), ".venv")
	require.NoError(t, os.MkdirAll(envDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, "leftover"), nil, 0644))

	fake := &fakeCommander{script: func(name string, args []string) (CmdResult, error) {
		if name == "uv" && args[0] == "--version" {
			return CmdResult{Stdout: "uv 0.4.12"}, nil
		}
		if name == "uv" && args[0] == "venv" {
			target := args[len(args)-1]
			if err := os.MkdirAll(filepath.Join(target, "bin"), 0755); err != nil {
				return CmdResult{}, err
			}
			return CmdResult{}, os.WriteFile(filepath.Join(target, "bin", "python"), nil, 0755)
		}
		return CmdResult{ExitCode: 1}, nil
	}}
	config := &Config{EnvDir: envDir, PythonVersion: "3.10", AssumeYes: true}

	env, err := EnsureEnv(context.Background(), fake, config)
	require.NoError(t, err)
	assert.True(t, env.Valid())
	assert.False(t, fileExists(filepath.Join(envDir, "leftover")))
}

func TestSizeString(t *testing.T) {
	assert.Equal(t, "512B", sizeString(512))
	assert.Equal(t, "2.00KB", sizeString(2*KB))
	assert.Equal(t, "1.50MB", sizeString(MB+MB/2))
	assert.Equal(t, "3.00GB", sizeString(3*GB))
}
