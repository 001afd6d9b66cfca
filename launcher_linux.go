//go:build linux

package setup

import (
	"os"
	"os/user"
	"path/filepath"
)

const (
	desktopFileUserDir   = ".local/share/applications"
	desktopFileSystemDir = "/usr/share/applications"
	desktopFilename      = "structcoder-env.desktop"
	desktopFileTemplate  = `[Desktop Entry]
Name={{.product}} Environment
Version={{.version}}
Type=Application
Exec=x-terminal-emulator -e bash -c "cd {{.projectDir}} && source {{.envDir}}/bin/activate && exec bash"
Comment=Terminal with the {{.product}} environment activated
Categories=Development;Science;
Terminal=true
`
)

// osCreateLauncherEntry writes a desktop entry that opens a terminal with
// the virtual environment activated. Root gets a system-wide entry,
// everyone else a per-user one.
func osCreateLauncherEntry(variables ...StringMap) error {
	content := ExpandVariables(desktopFileTemplate, MergeVariables(variables...))
	usr, err := user.Current()
	if err != nil {
		return err
	}
	var desktopFilepath string
	if usr.Uid == "0" {
		desktopFilepath = filepath.Join(desktopFileSystemDir, desktopFilename)
	} else {
		desktopFilepath = filepath.Join(usr.HomeDir, desktopFileUserDir, desktopFilename)
	}
	if err := os.MkdirAll(filepath.Dir(desktopFilepath), 0755); err != nil {
		return err
	}
	return os.WriteFile(desktopFilepath, []byte(content), 0755)
}
