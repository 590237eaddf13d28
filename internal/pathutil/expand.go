// Package pathutil resolves the user-facing path shorthands accepted in
// config files.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Expand turns "~/x" into a path under the user's home directory and "./x"
// into a path under the working directory. A bare "~" is the home directory.
// Other paths are returned unchanged.
func Expand(p string) (string, error) {
	switch {
	case p == "~":
		return os.UserHomeDir()
	case strings.HasPrefix(p, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("pathutil: finding home directory: %w", err)
		}
		return filepath.Join(home, p[2:]), nil
	case strings.HasPrefix(p, "./"):
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("pathutil: finding working directory: %w", err)
		}
		return filepath.Join(cwd, p[2:]), nil
	default:
		return p, nil
	}
}

// Shorten is the inverse used for display: paths under the home directory
// are printed with a leading "~".
func Shorten(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return shortenUnder(path, home)
}

func shortenUnder(path, home string) string {
	home = filepath.Clean(home)
	switch {
	case path == home:
		return "~"
	case strings.HasPrefix(path, home+string(filepath.Separator)):
		return "~" + path[len(home):]
	default:
		return path
	}
}
