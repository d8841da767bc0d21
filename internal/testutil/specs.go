package testutil

import (
	"embed"
	"os"
	"path/filepath"
	"testing"
)

//go:embed specs
var specFS embed.FS

// SpecBytes returns the raw contents of a bundled description document.
func SpecBytes(t testing.TB, name string) []byte {
	t.Helper()
	data, err := specFS.ReadFile("specs/" + name)
	if err != nil {
		t.Fatalf("fixture %s: %v", name, err)
	}
	return data
}

// WriteSpec copies a bundled description document into a temp directory
// and returns its path.
func WriteSpec(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, SpecBytes(t, name), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
