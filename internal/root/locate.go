// Package root finds the jotter tree root and loads its marker config.
package root

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/jotter/internal/apperr"
)

// MarkerDir is the directory whose presence identifies a tree root.
const MarkerDir = ".jotter"

// RelFunc rewrites a root-relative path so it is relative to the directory
// the tool was invoked from.
type RelFunc func(rootRel string) string

// Find walks from start up through its ancestors and returns the first
// directory that contains MarkerDir.
func Find(start string) (string, error) {
	dir, _, err := FindRel(start)
	return dir, err
}

// FindRel is Find plus a RelFunc built from the number of ancestor steps taken.
func FindRel(start string) (string, RelFunc, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", nil, fmt.Errorf("root: resolve %s: %w", start, err)
	}
	steps := 0
	for {
		if isDir(filepath.Join(dir, MarkerDir)) {
			return dir, upRel(steps), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, fmt.Errorf("%w: no %s directory above %s", apperr.ErrRootNotFound, MarkerDir, start)
		}
		dir = parent
		steps++
	}
}

// Resolve honours an explicit override before falling back to Find.
// The override is taken as-is; the marker directory is not required there.
func Resolve(override, cwd string) (string, RelFunc, error) {
	if override == "" {
		return FindRel(cwd)
	}
	dir, err := filepath.Abs(override)
	if err != nil {
		return "", nil, fmt.Errorf("root: resolve %s: %w", override, err)
	}
	if !isDir(dir) {
		return "", nil, fmt.Errorf("%w: %s is not a directory", apperr.ErrRootNotFound, override)
	}
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return dir, identity, nil
	}
	return dir, func(rootRel string) string {
		rel, err := filepath.Rel(abs, filepath.Join(dir, rootRel))
		if err != nil {
			return filepath.Join(dir, rootRel)
		}
		return rel
	}, nil
}

func upRel(steps int) RelFunc {
	if steps == 0 {
		return identity
	}
	prefix := strings.Repeat(".."+string(filepath.Separator), steps)
	return func(rootRel string) string {
		return filepath.Clean(prefix + rootRel)
	}
}

func identity(rootRel string) string { return rootRel }

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
