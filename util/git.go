package util

import (
	"os"
	"path/filepath"
)

// FindGitRoot walks upward from start looking for a .git directory.
// Returns start unchanged if none is found, so callers can always use
// the result as a workspace root. An empty start means the current
// directory.
func FindGitRoot(start string) (string, error) {
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		start = cwd
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}
