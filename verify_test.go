package setup

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verifyFixture builds a project layout where every check can pass, plus a
// commander that answers the interpreter probes.
func verifyFixture(t *testing.T) (PythonEnv, *Config, *fakeCommander) {
	t.Helper()
	clearVirtualEnv(t)
	projectDir := t.TempDir()
	t.Chdir(projectDir)

	envDir := filepath.Join(projectDir, ".venv")
	require.NoError(t, os.MkdirAll(filepath.Join(envDir, "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, "bin", "python"), nil, 0755))
	env := PythonEnv{Dir: envDir, Python: osVenvPython(envDir)}

	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "parser"), 0755))
	for _, name := range []string{"my-languages2.so", "DFG.py"} {
		require.NoError(t, os.WriteFile(filepath.Join(projectDir, "parser", name), []byte("x"), 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "saved_models", "pretrain"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(projectDir, "saved_models", "pretrain", "checkpoint_best_at_175000.bin"),
		bytes.Repeat([]byte("w"), 2048), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "data", "codexglue_translation"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(projectDir, "data", "codexglue_translation", "train.pkl"), []byte("p"), 0644))

	versions := map[string]string{
		"numpy": "1.26.4",
		"torch": "2.2.2",
		"tqdm":  "4.66.1",
	}
	fake := &fakeCommander{script: func(name string, args []string) (CmdResult, error) {
		joined := strings.Join(args, " ")
		switch {
		case name == "uv":
			return CmdResult{Stdout: "uv 0.4.12\n"}, nil
		case joined == "--version":
			return CmdResult{Stdout: "Python 3.10.13\n"}, nil
		case strings.Contains(joined, "torch.cuda.is_available"):
			return CmdResult{Stdout: "mps\n"}, nil
		case strings.HasPrefix(joined, "-c import "):
			module := strings.Fields(args[1])[1]
			module = strings.TrimSuffix(module, ";")
			if version, ok := versions[module]; ok {
				return CmdResult{Stdout: version + "\n"}, nil
			}
			return CmdResult{ExitCode: 1, Stderr: "ModuleNotFoundError"}, nil
		}
		return CmdResult{ExitCode: 1}, nil
	}}

	config := &Config{
		PythonVersion: "3.10",
		EnvDir:        envDir,
		Packages: []Package{
			{Name: "numpy", Display: "NumPy", Version: "1.26.4"},
			{Name: "torch", Display: "PyTorch", Version: "2.2.2"},
			{Name: "tqdm", Display: "TQDM"},
		},
		Parser: ParserConfig{
			Dir:       "parser",
			Artifacts: []string{"my-languages2.so"},
			Sources:   []string{"DFG.py"},
		},
		Dirs: []string{"saved_models/pretrain", "data"},
		Checkpoint: CheckpointConfig{
			Path: "saved_models/pretrain/checkpoint_best_at_175000.bin",
			Hint: "https://example.org/checkpoint",
		},
		Datasets: []DatasetConfig{
			{Dir: "data/codexglue_translation", Display: "Java-C# translation"},
		},
		Variables: StringMap{"product": "StructCoder"},
	}
	return env, config, fake
}

func TestVerifyAllChecksPass(t *testing.T) {
	env, config, fake := verifyFixture(t)
	report := Verify(context.Background(), fake, env, config)

	assert.True(t, report.Passed())
	assert.Equal(t, 1.0, report.Progress())
	require.Len(t, report.Sections, 8)
}

func TestVerifyVersionMismatchFails(t *testing.T) {
	env, config, fake := verifyFixture(t)
	config.Packages[0].Version = "2.0.0" // installed is 1.26.4

	report := Verify(context.Background(), fake, env, config)
	assert.False(t, report.Passed())

	var numpyCheck Check
	for _, section := range report.Sections {
		if section.Title != "Python packages" {
			continue
		}
		numpyCheck = section.Checks[0]
	}
	assert.False(t, numpyCheck.OK)
	assert.Contains(t, numpyCheck.Detail, "expected 2.0.0")
}

func TestVerifyMissingImportFails(t *testing.T) {
	env, config, fake := verifyFixture(t)
	config.Packages = append(config.Packages, Package{Name: "transformers"})

	report := Verify(context.Background(), fake, env, config)
	assert.False(t, report.Passed())
}

func TestVerifyOptionalFailureStillPasses(t *testing.T) {
	env, config, fake := verifyFixture(t)
	config.Packages = append(config.Packages, Package{Name: "jupyter", Optional: true})
	config.Checkpoint.Path = "saved_models/pretrain/missing.bin"

	report := Verify(context.Background(), fake, env, config)
	assert.True(t, report.Passed())
	assert.Less(t, report.Progress(), 1.0)
}

func TestVerifyWithoutInterpreter(t *testing.T) {
	_, config, fake := verifyFixture(t)
	report := Verify(context.Background(), fake, PythonEnv{}, config)
	assert.False(t, report.Passed())
}

func TestPrintReportMarkers(t *testing.T) {
	env, config, fake := verifyFixture(t)
	config.Packages = append(config.Packages, Package{Name: "transformers", Display: "Transformers"})
	report := Verify(context.Background(), fake, env, config)

	translator := NewTranslatorVar(config.Variables)
	var buf bytes.Buffer
	PrintReport(&buf, report, translator)

	out := buf.String()
	assert.Contains(t, out, "✅ NumPy (1.26.4)")
	assert.Contains(t, out, "❌ Transformers (not importable)")
	assert.Contains(t, out, "Python packages")
	assert.Contains(t, out, "[") // progress bar
}
