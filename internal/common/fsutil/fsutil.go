// Package fsutil holds the path helpers used by model discovery.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExpandHome replaces a leading "~" or "~/" with the user's home directory.
// Other forms, including "~user", are returned unchanged.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// ResolveDir expands "~" and returns the absolute, cleaned form of dir.
func ResolveDir(dir string) (string, error) {
	expanded, err := ExpandHome(dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	return abs, nil
}

// CreatedAt approximates when the file behind fi appeared: the inode change
// time on Linux, the modification time elsewhere.
func CreatedAt(fi os.FileInfo) time.Time {
	if t, ok := changeTime(fi); ok {
		return t
	}
	return fi.ModTime()
}
