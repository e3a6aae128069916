package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ResolveExecutable finds the real program a shim stands in for: name inside
// binDir when one is configured, otherwise the first executable called name
// on PATH that is not this binary.
func ResolveExecutable(name, binDir string) (string, error) {
	var self os.FileInfo
	if path, err := os.Executable(); err == nil {
		self, _ = os.Stat(path)
	}
	return resolveExecutable(name, binDir, os.Getenv("PATH"), self)
}

func resolveExecutable(name, binDir, pathEnv string, self os.FileInfo) (string, error) {
	// A missing file in binDir is reported by the spawn itself.
	if binDir != "" {
		return filepath.Join(binDir, name), nil
	}

	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() || info.Mode()&0o111 == 0 {
			continue
		}
		// Skip the shim itself, or it would proxy to itself forever.
		if self != nil && os.SameFile(info, self) {
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("could not find %q on PATH: %w", name, exec.ErrNotFound)
}
