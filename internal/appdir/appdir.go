// Package appdir resolves the on-disk locations imprint uses for its state
// store and content-addressed vault. Inspect them with `imprint env`.
package appdir

import (
	"os"
	"path/filepath"
)

const dirName = ".imprint"

// Home is the root directory under which the state store and vault live. It
// defaults to $HOME/.imprint and can be overridden with IMPRINT_HOME, the
// same env-var-with-fallback shape the rest of the ecosystem uses for tool
// roots.
func Home() (string, error) {
	if env := os.Getenv("IMPRINT_HOME"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName), nil
}

// StatePath returns the path of the embedded key-value store file.
func StatePath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "state.db"), nil
}

// VaultRoot returns the root directory of the content-addressed vault.
func VaultRoot() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "store"), nil
}
