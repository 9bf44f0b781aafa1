package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/laguz/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the workspace root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after each
// successful index mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes stale index
// entries whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories are added to the watch list; any notebooks
			// already inside them get indexed right away.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					indexNewDir(db, store, root, absPath, logger, cb)
					continue
				}
			}

			// Only process .ipynb files from here on.
			if !strings.HasSuffix(absPath, ".ipynb") {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				// Create can fire before the writer has flushed any content;
				// the decode then fails and the real data arrives with a
				// later Write. Whether this is a new notebook is therefore
				// decided by index presence, not by the event op.
				prev, _ := db.GetChecksum(rel)
				if idxErr := IndexNotebook(db, rel, data, time.Now()); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if prev == "" {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				if cb != nil {
					cb(kind, rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteNotebook(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				if cb != nil {
					cb("deleted", rel)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new path
				// will arrive as a separate Create event (if it stays within
				// a watched dir). Delete the old entry immediately and
				// schedule a short reconciliation pass to catch stragglers.
				if delErr := db.DeleteNotebook(rel); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					if cb != nil {
						cb("deleted", rel)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile does a lightweight sync using batch lookups: index entries
// without a file on disk are removed, on-disk notebooks that changed or were
// never indexed are (re)indexed.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	infos, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]storage.FileInfo, len(infos))
	for _, fi := range infos {
		disk[fi.Path] = fi
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteNotebook(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				if cb != nil {
					cb("deleted", p)
				}
			}
		}
	}

	for p, fi := range disk {
		if checksums[p] == fi.Checksum {
			continue
		}
		data, readErr := store.Read(p)
		if readErr != nil {
			continue
		}
		if idxErr := IndexNotebook(db, p, data, fi.UpdatedAt); idxErr == nil {
			logger.Debug("reconcile: indexed new", slog.String("path", p))
			if cb != nil {
				cb("created", p)
			}
		}
	}
}

// indexNewDir indexes any .ipynb files found in a newly created directory.
func indexNewDir(db *DB, store storage.Provider, root, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".ipynb") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		data, readErr := store.Read(rel)
		if readErr != nil {
			return nil
		}
		if idxErr := IndexNotebook(db, rel, data, time.Now()); idxErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			if cb != nil {
				cb("created", rel)
			}
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
