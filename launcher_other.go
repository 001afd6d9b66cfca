//go:build !linux

package setup

// Launcher entries are only created on Linux desktops.
func osCreateLauncherEntry(variables ...StringMap) error { return nil }
