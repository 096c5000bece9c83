package cache

import (
	"context"
	"database/sql"
)

// WorkDirKind classifies how a work directory was discovered.
type WorkDirKind string

const (
	WorkDirKindGitRepo WorkDirKind = "git-repo"
	WorkDirKindPackage WorkDirKind = "package"
	WorkDirKindSandbox WorkDirKind = "sandbox"
	WorkDirKindAdHoc   WorkDirKind = "ad-hoc"
)

// WorkDirRecord is the persisted row for a work directory.
type WorkDirRecord struct {
	ID        string
	RootPath  string
	Kind      WorkDirKind
	Trusted   bool
	CreatedAt int64
}

// UpsertWorkDir records a work directory on first use. It is a no-op
// once the row exists -- WorkDir rows are never mutated except for
// Trusted, which SetWorkDirTrusted updates explicitly.
func (s *Store) UpsertWorkDir(ctx context.Context, rec WorkDirRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO work_dirs (id, root_path, kind, trusted, created_at)
			VALUES (?, ?, ?, ?, unixepoch())
			ON CONFLICT(id) DO NOTHING`,
			rec.ID, rec.RootPath, string(rec.Kind), boolToInt(rec.Trusted))
		return wrapIOErr(s.paths.CacheDBPath(), err)
	})
}

// SetWorkDirTrusted updates a work directory's trusted flag.
func (s *Store) SetWorkDirTrusted(ctx context.Context, id string, trusted bool) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE work_dirs SET trusted = ? WHERE id = ?`, boolToInt(trusted), id)
		return wrapIOErr(s.paths.CacheDBPath(), err)
	})
}

// GetWorkDir reads a work directory row, returning (nil, nil) if absent.
func (s *Store) GetWorkDir(ctx context.Context, id string) (*WorkDirRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, root_path, kind, trusted, created_at FROM work_dirs WHERE id = ?`, id)

	var rec WorkDirRecord
	var trusted int
	var kind string
	if err := row.Scan(&rec.ID, &rec.RootPath, &kind, &trusted, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrapIOErr(s.paths.CacheDBPath(), err)
	}
	rec.Kind = WorkDirKind(kind)
	rec.Trusted = trusted != 0
	return &rec, nil
}

// ListWorkDirs returns every recorded work directory, used by GC to
// detect roots that no longer exist on disk.
func (s *Store) ListWorkDirs(ctx context.Context) ([]WorkDirRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, root_path, kind, trusted, created_at FROM work_dirs`)
	if err != nil {
		return nil, wrapIOErr(s.paths.CacheDBPath(), err)
	}
	defer func() { _ = rows.Close() }()

	var out []WorkDirRecord
	for rows.Next() {
		var rec WorkDirRecord
		var trusted int
		var kind string
		if err := rows.Scan(&rec.ID, &rec.RootPath, &kind, &trusted, &rec.CreatedAt); err != nil {
			return nil, wrapIOErr(s.paths.CacheDBPath(), err)
		}
		rec.Kind = WorkDirKind(kind)
		rec.Trusted = trusted != 0
		out = append(out, rec)
	}
	return out, wrapIOErr(s.paths.CacheDBPath(), rows.Err())
}

// DeleteWorkDir removes a work directory row and its references, used
// by GC once the root path is confirmed gone.
func (s *Store) DeleteWorkDir(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM references_ WHERE workdir_id = ?`, id); err != nil {
			return wrapIOErr(s.paths.CacheDBPath(), err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM work_dirs WHERE id = ?`, id); err != nil {
			return wrapIOErr(s.paths.CacheDBPath(), err)
		}
		return nil
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
