// Package watch reports file changes inside jotter trees.
//
// The watcher does not re-index anything: every consumer surveys the tree
// again on demand, so a change notification is all that is needed.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/jotter/internal/parser"
	"github.com/starford/jotter/internal/root"
)

// Change operations passed to a Callback.
const (
	OpCreate = "create"
	OpWrite  = "write"
	OpRemove = "remove"
	OpRename = "rename"
)

// Callback is called for every relevant change. path is relative to the
// first watched root.
type Callback func(op, path string)

// Watch starts an fsnotify watcher on roots and processes change events
// until ctx is cancelled. Only eligible documents and tree configs are
// reported; hidden directories other than the marker directory are not
// watched.
//
// New directories created at runtime are automatically added to the watch
// list.
func Watch(ctx context.Context, roots []string, logger *slog.Logger, cb Callback) error {
	if len(roots) == 0 {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	top := roots[0]
	if err := addDirsRecursive(w, top); err != nil {
		return err
	}
	for _, r := range roots[1:] {
		if err := addDirsRecursive(w, r); err != nil {
			logger.Warn("watcher: linked tree skipped",
				slog.String("path", r),
				slog.String("error", err.Error()))
		}
	}

	logger.Info("watcher: started", slog.String("root", top), slog.Int("trees", len(roots)))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if hidden(top, absPath) {
						continue
					}
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					continue
				}
			}

			if !relevant(absPath) {
				continue
			}
			rel, relErr := filepath.Rel(top, absPath)
			if relErr != nil {
				continue
			}

			op := opName(ev.Op)
			if op == "" {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", op))
			if cb != nil {
				cb(op, rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func opName(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return OpCreate
	case op&fsnotify.Write != 0:
		return OpWrite
	case op&fsnotify.Remove != 0:
		return OpRemove
	case op&fsnotify.Rename != 0:
		return OpRename
	}
	return ""
}

// relevant reports whether a change at path can alter a survey.
func relevant(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if filepath.Base(filepath.Dir(path)) == root.MarkerDir {
		return name == "config"
	}
	return parser.Eligible(name)
}

// hidden reports whether any segment of path below top is hidden.
func hidden(top, path string) bool {
	rel, err := filepath.Rel(top, path)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") && seg != ".." && seg != "." {
			return true
		}
	}
	return false
}

// addDirsRecursive adds dir and all its visible subdirectories to the
// watcher. The marker directory is watched for config changes but not
// descended into further.
func addDirsRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != dir && strings.HasPrefix(name, ".") {
			if name != root.MarkerDir {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				return err
			}
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
