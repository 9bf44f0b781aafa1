package index

import (
	"log/slog"
	"time"

	"github.com/starford/laguz/internal/checksum"
	"github.com/starford/laguz/internal/nbformat"
	"github.com/starford/laguz/internal/notebook"
	"github.com/starford/laguz/internal/storage"
)

// Sync walks the workspace and brings the index up to date:
//   - new/changed notebooks are decoded and upserted
//   - notebooks removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	infos, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(infos))
	for _, fi := range infos {
		disk[fi.Path] = struct{}{}

		if checksums[fi.Path] == fi.Checksum {
			continue
		}

		data, err := store.Read(fi.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", fi.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexNotebook(db, fi.Path, data, fi.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", fi.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", fi.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNotebook(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexNotebook decodes data and upserts the notebook into the DB.
func IndexNotebook(db *DB, path string, data []byte, updatedAt time.Time) error {
	doc, err := nbformat.Decode(data)
	if err != nil {
		return err
	}

	row := NotebookRow{
		Path:      path,
		Title:     doc.Title(),
		Checksum:  checksum.Sum(data),
		CellCount: doc.Len(),
		UpdatedAt: updatedAt,
	}
	if ks := doc.Metadata.KernelSpec; ks != nil {
		row.Kernel = ks.Name
	}
	if li := doc.Metadata.LanguageInfo; li != nil {
		row.Language = li.Name
	}

	cells := make([]CellRow, 0, doc.Len())
	for i, c := range doc.Cells() {
		if _, ok := c.(*notebook.CodeCell); ok {
			row.CodeCellCount++
		}
		cells = append(cells, CellRow{
			Notebook: path,
			Position: i,
			Type:     string(c.Type()),
			Source:   notebook.Source(c),
		})
	}
	return db.UpsertNotebook(row, cells)
}
