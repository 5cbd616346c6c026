// Package utils provides small filesystem and environment helpers shared by
// the dmenu-extended packages.
package utils

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// HomeDir returns the user's home directory
func HomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.Getenv("HOME")
}

// ExpandHome replaces a leading ~ with the home directory
func ExpandHome(path string) string {
	if path == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return HomeDir() + path[1:]
	}
	return path
}

// ConfigDir returns XDG config directory
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(HomeDir(), ".config")
}

// CommandExists checks if a command exists in PATH
func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// FileExists reports whether path exists and is not a directory
func FileExists(path string) bool {
	info, err := os.Stat(ExpandHome(path))
	return err == nil && !info.IsDir()
}

// IsDirectory checks if path is a directory
func IsDirectory(path string) bool {
	info, err := os.Stat(ExpandHome(path))
	if err != nil {
		return false
	}
	return info.IsDir()
}

// EnsureDir creates directory if it doesn't exist
func EnsureDir(path string) error {
	path = ExpandHome(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	return nil
}
