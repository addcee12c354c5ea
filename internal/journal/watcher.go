package journal

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/internal/store"
)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the vault root and re-indexes plans
// until ctx is cancelled. cb (if non-nil) runs after each index mutation.
//
// Directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass, since fsnotify only
// reports the old name.
func Watch(ctx context.Context, idx store.PlanIndex, vault storage.Provider, root string, logger *slog.Logger, cb ChangeFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	notify := func(kind, path string) {
		if cb != nil {
			cb(kind, path)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
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
			reconcile(ctx, idx, vault, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, abs); addErr != nil {
						logger.Warn("watcher: add new dir failed", slog.String("path", abs), slog.String("error", addErr.Error()))
					}
					indexNewDir(ctx, idx, vault, root, abs, logger, notify)
					continue
				}
			}

			rel, relErr := filepath.Rel(root, abs)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if !isPlanPath(rel) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := vault.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := indexFile(ctx, idx, rel, data, modTime(abs), logger); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
				notify(kind, rel)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if delErr := idx.DeletePlan(ctx, rel); delErr != nil {
					if !errors.Is(delErr, apperr.ErrNotFound) {
						logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					}
				} else {
					logger.Debug("watcher: deleted", slog.String("path", rel))
					notify("deleted", rel)
				}
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes index entries without a file and indexes files the
// index has not seen, using one listing and one checksum query.
func reconcile(ctx context.Context, idx store.PlanIndex, vault storage.Provider, logger *slog.Logger, notify ChangeFunc) {
	checksums, err := idx.PlanChecksums(ctx)
	if err != nil {
		logger.Warn("watcher: reconcile checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := vault.List("")
	if err != nil {
		logger.Warn("watcher: reconcile list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	mtimes := make(map[string]time.Time, len(metas))
	for _, m := range metas {
		if isPlanPath(m.Path) {
			disk[m.Path] = m.Checksum
			mtimes[m.Path] = m.UpdatedAt
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if idx.DeletePlan(ctx, p) == nil {
				logger.Debug("watcher: reconcile removed", slog.String("path", p))
				notify("deleted", p)
			}
		}
	}

	for p, cs := range disk {
		old, known := checksums[p]
		if old == cs {
			continue
		}
		data, readErr := vault.Read(p)
		if readErr != nil {
			continue
		}
		if indexFile(ctx, idx, p, data, mtimes[p], logger) == nil {
			kind := "created"
			if known {
				kind = "updated"
			}
			logger.Debug("watcher: reconcile indexed", slog.String("path", p))
			notify(kind, p)
		}
	}
}

// indexNewDir indexes plans already present in a newly created directory.
func indexNewDir(ctx context.Context, idx store.PlanIndex, vault storage.Provider, root, dir string, logger *slog.Logger, notify ChangeFunc) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !isPlanPath(rel) {
			return nil
		}
		data, readErr := vault.Read(rel)
		if readErr != nil {
			return nil
		}
		if indexFile(ctx, idx, rel, data, modTime(p), logger) == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			notify("created", rel)
		}
		return nil
	})
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}

func modTime(abs string) time.Time {
	if info, err := os.Stat(abs); err == nil {
		return info.ModTime()
	}
	return time.Now()
}
