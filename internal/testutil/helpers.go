package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jar-ry/Snowflake-Data-Science/internal/common"
)

// WriteFile writes content to a file under dir, creating parent directories.
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), common.DirPermissionSecure); err != nil {
		t.Fatalf("Failed to create directories: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), common.FilePermissionSecure); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// ConfigDir points the config directory at a fresh temporary directory for
// the rest of the test.
func ConfigDir(t *testing.T, envVar string) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv(envVar, dir)
	return dir
}
