// Package testutil provides shared test helpers for building jotter trees.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/jotter/internal/root"
)

// Tree creates a temporary jotter root containing files (relative path →
// content) and a .jotter/config linking to links.
func Tree(t *testing.T, files map[string]string, links ...string) string {
	t.Helper()
	dir := t.TempDir()
	Populate(t, dir, files, links...)
	return dir
}

// Populate turns dir into a jotter root and writes files into it.
func Populate(t *testing.T, dir string, files map[string]string, links ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, root.MarkerDir), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(root.ConfigPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	if err := (&root.Config{Links: links}).Write(f); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	for rel, content := range files {
		WriteFile(t, dir, rel, content)
	}
}

// WriteFile writes content to dir/rel, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
