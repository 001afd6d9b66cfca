//go:build linux || darwin

package setup

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

func osFileWriteAccess(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}

func osDiskSpace(path string) int64 {
	fs := unix.Statfs_t{}
	if err := unix.Statfs(path, &fs); err != nil {
		return -1
	}
	return int64(fs.Bavail) * int64(fs.Bsize)
}

// osVenvPython returns the interpreter path inside a virtual environment.
func osVenvPython(envDir string) string {
	if envDir == "" {
		return ""
	}
	return filepath.Join(envDir, "bin", "python")
}
