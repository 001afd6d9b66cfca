package setup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const parserBackupSuffix = ".x86_backup"

// RebuildParsers rebuilds the tree-sitter parser library for the local
// architecture: it clones missing grammar repositories into the vendor
// directory, moves the existing shared objects out of the way, and runs the
// build script in the environment's interpreter. The progress callback
// receives a short line per completed stage.
func RebuildParsers(ctx context.Context, cmd Commander, env PythonEnv, config *Config, progress func(string)) error {
	if progress == nil {
		progress = func(string) {}
	}
	parserDir := config.Parser.Dir
	if !dirExists(parserDir) {
		return fmt.Errorf(
			"parser directory %s not found, run from the StructCoder root directory", parserDir)
	}

	if err := cloneGrammars(ctx, cmd, config, progress); err != nil {
		return err
	}
	if err := backupArtifacts(config, progress); err != nil {
		return err
	}

	progress("building parsers, this may take a few minutes")
	result, err := cmd.Run(ctx, parserDir, env.Python, config.Parser.BuildScript)
	if err != nil {
		return fmt.Errorf("parser build: %w", err)
	}
	if !result.OK() {
		return fmt.Errorf("parser build failed: %s", strings.TrimSpace(result.Stderr))
	}

	built := false
	for _, artifact := range config.Parser.Artifacts {
		path := filepath.Join(parserDir, artifact)
		if info, err := os.Stat(path); err == nil {
			progress(fmt.Sprintf("built %s (%s)", artifact, sizeString(info.Size())))
			built = true
		}
	}
	if !built {
		return fmt.Errorf("parser build produced none of: %s",
			strings.Join(config.Parser.Artifacts, ", "))
	}
	return nil
}

// cloneGrammars makes sure every configured grammar repository exists in the
// vendor directory. Empty clone directories are removed and cloned again.
func cloneGrammars(ctx context.Context, cmd Commander, config *Config, progress func(string)) error {
	vendorDir := filepath.Join(config.Parser.Dir, config.Parser.VendorDir)
	if err := os.MkdirAll(vendorDir, 0755); err != nil {
		return err
	}
	for _, url := range config.Parser.Grammars {
		name := grammarName(url)
		grammarDir := filepath.Join(vendorDir, name)
		if dirExists(grammarDir) {
			if entries, err := os.ReadDir(grammarDir); err == nil && len(entries) > 0 {
				continue
			}
			if err := os.RemoveAll(grammarDir); err != nil {
				return err
			}
		}
		progress("cloning " + name)
		result, err := cmd.Run(ctx, "", "git", "clone", "--depth", "1", url, grammarDir)
		if err != nil {
			return fmt.Errorf("cloning %s: %w", name, err)
		}
		if !result.OK() {
			return fmt.Errorf("cloning %s failed: %s", name, strings.TrimSpace(result.Stderr))
		}
	}
	return nil
}

// backupArtifacts moves existing shared objects aside so a failed build
// never leaves a half-written library under the original name.
func backupArtifacts(config *Config, progress func(string)) error {
	for _, artifact := range config.Parser.Artifacts {
		path := filepath.Join(config.Parser.Dir, artifact)
		if !fileExists(path) {
			continue
		}
		backup := path + parserBackupSuffix
		if fileExists(backup) {
			if err := os.Remove(backup); err != nil {
				return err
			}
		}
		if err := os.Rename(path, backup); err != nil {
			return err
		}
		log.Printf("Backed up %s to %s", path, backup)
		progress(fmt.Sprintf("backed up %s", artifact))
	}
	return nil
}

// grammarName returns the repository name of a grammar clone URL.
func grammarName(url string) string {
	name := strings.TrimSuffix(url, "/")
	name = strings.TrimSuffix(name, ".git")
	return name[strings.LastIndex(name, "/")+1:]
}
