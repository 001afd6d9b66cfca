package setup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const (
	KB int64 = 1 << 10
	MB       = KB << 10
	GB       = MB << 10
	TB       = GB << 10
)

// torch alone unpacks to several GB
var minFreeEnvSpace = 5 * GB

// stdin is swapped out by tests that exercise the confirmation prompt.
var stdin io.Reader = os.Stdin

// EnsureEnv makes sure the virtual environment exists and returns it.
// Existing valid environments are reused as-is; a directory without a
// usable interpreter is only recreated after confirmation. The environment
// is created with uv when available, falling back to the venv module.
func EnsureEnv(ctx context.Context, cmd Commander, config *Config) (PythonEnv, error) {
	env := DetectEnv(config.EnvDir)
	if env.Active {
		log.Printf("Using activated environment %s", env.Dir)
		return env, nil
	}
	if env.Valid() {
		log.Printf("Reusing existing environment %s", env.Dir)
		return env, nil
	}
	if dirExists(config.EnvDir) {
		if !confirm(fmt.Sprintf(
			"Directory %s exists but has no usable interpreter. Recreate it?",
			config.EnvDir), config.AssumeYes) {
			return env, fmt.Errorf("environment directory %s left untouched", config.EnvDir)
		}
		if err := os.RemoveAll(config.EnvDir); err != nil {
			return env, err
		}
	}
	parent := filepath.Dir(filepath.Clean(config.EnvDir))
	if parent == "" {
		parent = "."
	}
	if !osFileWriteAccess(parent) {
		return env, fmt.Errorf("environment location is not writeable: '%s'", parent)
	}
	if free := osDiskSpace(parent); free >= 0 && free < minFreeEnvSpace {
		return env, fmt.Errorf(
			"not enough disk space for the environment: %s free, %s needed",
			sizeString(free), sizeString(minFreeEnvSpace))
	}
	if err := createEnv(ctx, cmd, config); err != nil {
		return env, err
	}
	env = DetectEnv(config.EnvDir)
	if !env.Valid() {
		return env, fmt.Errorf("environment %s was created but has no interpreter", config.EnvDir)
	}
	return env, nil
}

func createEnv(ctx context.Context, cmd Commander, config *Config) error {
	if uvVersion(ctx, cmd) != "" {
		log.Printf("Creating environment %s with uv", config.EnvDir)
		result, err := cmd.Run(ctx, "", "uv", "venv", "--python", config.PythonVersion, config.EnvDir)
		if err != nil {
			return err
		}
		if !result.OK() {
			return fmt.Errorf("uv venv failed: %s", strings.TrimSpace(result.Stderr))
		}
		return nil
	}
	log.Printf("Creating environment %s with the venv module", config.EnvDir)
	result, err := cmd.Run(ctx, "", "python3", "-m", "venv", config.EnvDir)
	if err != nil {
		return err
	}
	if !result.OK() {
		return fmt.Errorf("python3 -m venv failed: %s", strings.TrimSpace(result.Stderr))
	}
	return nil
}

// uvVersion returns the uv version string, or "" when uv is not installed.
func uvVersion(ctx context.Context, cmd Commander) string {
	result, err := cmd.Run(ctx, "", "uv", "--version")
	if err != nil || !result.OK() {
		return ""
	}
	return result.Output()
}

// confirm asks the user a yes/no question on the terminal. assumeYes (the
// -yes flag) answers every prompt positively without asking.
func confirm(prompt string, assumeYes bool) bool {
	if assumeYes {
		return true
	}
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// sizeString returns a human-readable version of a byte count.
func sizeString(size int64) string {
	switch {
	case size < KB:
		return fmt.Sprintf("%dB", size)
	case size < MB:
		return fmt.Sprintf("%.2fKB", float64(size)/float64(KB))
	case size < GB:
		return fmt.Sprintf("%.2fMB", float64(size)/float64(MB))
	case size < TB:
		return fmt.Sprintf("%.2fGB", float64(size)/float64(GB))
	default:
		return fmt.Sprintf("%.2fTB", float64(size)/float64(TB))
	}
}
