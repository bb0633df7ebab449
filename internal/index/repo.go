package index

import (
	"encoding/json"
	"fmt"
	"time"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path      string
	Title     string
	Kind      string
	Citekeys  []string
	Keywords  []string
	Checksum  string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertDocument inserts or replaces a document, its FTS entry and its
// outbound citations within a transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string, cites []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	keysJSON, _ := json.Marshal(nonNil(d.Citekeys))
	kwJSON, _ := json.Marshal(nonNil(d.Keywords))

	_, err = tx.Exec(`
		INSERT INTO documents (path, title, kind, citekeys, keywords, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			kind       = excluded.kind,
			citekeys   = excluded.citekeys,
			keywords   = excluded.keywords,
			checksum   = excluded.checksum,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, d.Path, d.Title, d.Kind, string(keysJSON), string(kwJSON), d.Checksum, body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Path, d.Title, body, d.Citekeys, d.Keywords); err != nil {
		return err
	}

	_, _ = tx.Exec(`DELETE FROM citations WHERE source = ?`, d.Path)
	if len(cites) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO citations (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare citation insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range cites {
			if _, err := stmt.Exec(d.Path, target); err != nil {
				return fmt.Errorf("index: insert citation: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry and its citations.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM citations WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every catalogued document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// CitedBy returns the paths of all documents citing key, sorted.
func (db *DB) CitedBy(key string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM citations WHERE target = ? ORDER BY source`, key)
	if err != nil {
		return nil, fmt.Errorf("index: cited by: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Count returns the number of catalogued documents.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
