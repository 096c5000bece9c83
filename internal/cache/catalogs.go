package cache

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Catalog is a cached remote version listing: source (e.g.
// "github-releases", "cargo-index", "go-proxy") plus a source-specific
// key (e.g. "cli/cli"), mapping to the versions known at FetchedAt.
type Catalog struct {
	Source    string
	Key       string
	Versions  []string
	FetchedAt int64
}

// PutCatalog upserts a catalog entry.
func (s *Store) PutCatalog(ctx context.Context, c Catalog) error {
	versionsJSON, err := json.Marshal(c.Versions)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO version_catalogs (source, key, versions_json, fetched_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(source, key) DO UPDATE SET
				versions_json = excluded.versions_json,
				fetched_at = excluded.fetched_at`,
			c.Source, c.Key, string(versionsJSON), c.FetchedAt)
		return wrapIOErr(s.paths.CacheDBPath(), err)
	})
}

// GetCatalog reads a catalog entry regardless of freshness, returning
// (nil, nil) if absent. Callers compare FetchedAt against their own
// TTL/retention policy.
func (s *Store) GetCatalog(ctx context.Context, source, key string) (*Catalog, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT source, key, versions_json, fetched_at FROM version_catalogs WHERE source = ? AND key = ?`,
		source, key)

	var c Catalog
	var versionsJSON string
	if err := row.Scan(&c.Source, &c.Key, &versionsJSON, &c.FetchedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrapIOErr(s.paths.CacheDBPath(), err)
	}
	if err := json.Unmarshal([]byte(versionsJSON), &c.Versions); err != nil {
		return nil, err
	}
	return &c, nil
}

// TrimCatalogs deletes catalog entries older than cutoff, bounding how
// long a stale entry may be retained as a network-unavailable fallback.
func (s *Store) TrimCatalogs(ctx context.Context, cutoff int64) (int64, error) {
	var affected int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM version_catalogs WHERE fetched_at < ?`, cutoff)
		if err != nil {
			return wrapIOErr(s.paths.CacheDBPath(), err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}
