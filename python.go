package setup

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// PythonEnv describes the Python interpreter the setup drives. Dir is the
// virtual environment directory and Active is true when the environment was
// inherited from $VIRTUAL_ENV rather than found on disk.
type PythonEnv struct {
	Dir    string
	Python string
	Active bool
}

// DetectEnv locates the interpreter to use. An activated environment
// ($VIRTUAL_ENV) always wins; otherwise the configured environment directory
// is probed for an interpreter.
func DetectEnv(envDir string) PythonEnv {
	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		return PythonEnv{Dir: venv, Python: osVenvPython(venv), Active: true}
	}
	if python := osVenvPython(envDir); fileExists(python) {
		return PythonEnv{Dir: envDir, Python: python}
	}
	return PythonEnv{}
}

// Valid reports whether the environment has a usable interpreter.
func (p PythonEnv) Valid() bool {
	return p.Python != "" && fileExists(p.Python)
}

// Version asks the interpreter for its version ("3.10.13").
func (p PythonEnv) Version(ctx context.Context, cmd Commander) (string, error) {
	result, err := cmd.Run(ctx, "", p.Python, "--version")
	if err != nil {
		return "", err
	}
	if !result.OK() {
		return "", fmt.Errorf("%s --version failed: %s", p.Python, result.Stderr)
	}
	return strings.TrimPrefix(result.Output(), "Python "), nil
}

// pipArgs prepends the interpreter's pip invocation to the given arguments.
func (p PythonEnv) pipArgs(args ...string) []string {
	return append([]string{"-m", "pip"}, args...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
