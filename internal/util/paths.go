// Package util holds small helpers shared across packages.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a user-supplied path: a leading tilde expands to the
// home directory, $VAR and ${VAR} expand from the environment, and the
// result is cleaned.
//
// Examples:
//   - "~/sessions.db"          -> "/home/user/sessions.db"
//   - "${HIVE_HOME}/hive.yaml" -> "/opt/hive/hive.yaml"
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, path[2:])
		}
	}

	return filepath.Clean(os.ExpandEnv(path)), nil
}
