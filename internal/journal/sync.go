package journal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/internal/store"
)

// ChangeFunc is called after a plan is indexed or removed.
// kind is one of "created", "updated", "deleted".
type ChangeFunc func(kind string, path string)

// Sync walks the vault and brings the plan index up to date:
//   - new/changed plans are parsed and upserted
//   - plans removed from disk are deleted from the index
func Sync(ctx context.Context, idx store.PlanIndex, fs storage.Provider, logger *slog.Logger) error {
	metas, err := fs.List("")
	if err != nil {
		return err
	}

	checksums, err := idx.PlanChecksums(ctx)
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if !isPlanPath(m.Path) {
			continue
		}
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := fs.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(ctx, idx, m.Path, data, m.UpdatedAt, logger); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := idx.DeletePlan(ctx, p); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}

	return nil
}

// indexFile parses data and upserts the plan. Invalid goals are dropped
// with a warning; the rest of the plan is still indexed.
func indexFile(ctx context.Context, idx store.PlanIndex, path string, data []byte, updatedAt time.Time, logger *slog.Logger) error {
	plan, err := BuildPlan(path, data, updatedAt)
	if plan == nil {
		return err
	}
	if err != nil {
		logger.Warn("sync: dropped invalid goals", slog.String("path", path), slog.String("error", err.Error()))
	}
	return idx.UpsertPlan(ctx, *plan)
}
