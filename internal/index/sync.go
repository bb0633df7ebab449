package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/parser"
	"github.com/starford/jotter/internal/storage"
	"github.com/starford/jotter/internal/survey"
)

// SyncStats counts the catalog changes made by Sync.
type SyncStats struct {
	Indexed   int
	Unchanged int
	Removed   int
}

// Sync brings the catalog up to date with a surveyed index:
//   - new/changed documents are upserted
//   - documents no longer in the survey are deleted from the catalog
func Sync(ctx context.Context, db Catalog, idx *models.Index, logger *slog.Logger) (*SyncStats, error) {
	checksums, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	stats := &SyncStats{}
	seen := make(map[string]struct{}, idx.Len())
	for _, doc := range idx.Documents() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		seen[doc.RelPath] = struct{}{}

		content, err := survey.Content(doc)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", doc.RelPath), slog.String("error", err.Error()))
			continue
		}
		cs := storage.Checksum([]byte(content))
		if checksums[doc.RelPath] == cs {
			stats.Unchanged++
			continue
		}
		if err := indexDocument(db, doc, content, cs); err != nil {
			logger.Warn("sync: index failed", slog.String("path", doc.RelPath), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		logger.Debug("sync: indexed", slog.String("path", doc.RelPath))
	}

	for p := range checksums {
		if _, ok := seen[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}
	return stats, nil
}

// indexDocument upserts doc with its body text and outbound citations.
func indexDocument(db Catalog, doc *models.Document, content, checksum string) error {
	body := content
	var cites []string
	if strings.EqualFold(filepath.Ext(doc.RelPath), parser.ExtMarkdown) {
		ex, err := parser.ExtractFrontMatter(strings.NewReader(content), true)
		if err != nil {
			return err
		}
		body = ex.Body
		cites = parser.Cites(content).Sorted()
	}
	kws, _ := doc.Keywords()
	row := DocumentRow{
		Path:      doc.RelPath,
		Title:     doc.Title,
		Kind:      string(doc.Kind),
		Citekeys:  doc.Citekeys,
		Keywords:  kws,
		Checksum:  checksum,
		UpdatedAt: time.Now(),
	}
	return db.UpsertDocument(row, body, cites)
}
