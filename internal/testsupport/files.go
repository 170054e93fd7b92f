package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes raw content to path, creating parent directories. Tests
// use it to plant malformed or foreign pidfiles.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
