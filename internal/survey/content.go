package survey

import (
	"fmt"
	"os"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
)

// Content returns the full text of doc, reading it from disk unless the
// survey kept it in memory.
func Content(doc *models.Document) (string, error) {
	if doc.ContentLoaded {
		return doc.Content, nil
	}
	data, err := os.ReadFile(doc.AbsPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", apperr.ErrReadFailed, doc.RelPath, err)
	}
	return string(data), nil
}
