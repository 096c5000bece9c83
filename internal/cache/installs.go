package cache

import (
	"context"
	"database/sql"
	"encoding/json"
)

// InstallRecord is the persisted row for one externally-installed
// resource: a tool version, a github-release asset set, a cargo crate,
// a go module, or a custom operation's "met" state.
type InstallRecord struct {
	Kind           string
	IdentityKey    string
	InstallPath    string
	InstalledAt    int64
	LastRequiredAt int64
	Metadata       map[string]any
}

// InsertInstall records a newly completed install, or refreshes
// LastRequiredAt and Metadata if (kind, identity) already exists.
func (s *Store) InsertInstall(ctx context.Context, rec InstallRecord) error {
	metaJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO installs (kind, identity_key, install_path, installed_at, last_required_at, metadata_json)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(kind, identity_key) DO UPDATE SET
				last_required_at = excluded.last_required_at,
				metadata_json = excluded.metadata_json`,
			rec.Kind, rec.IdentityKey, rec.InstallPath, rec.InstalledAt, rec.LastRequiredAt, string(metaJSON))
		return wrapIOErr(s.paths.CacheDBPath(), err)
	})
}

// GetInstall looks up an install by (kind, identity), returning (nil, nil) if absent.
func (s *Store) GetInstall(ctx context.Context, kind, identityKey string) (*InstallRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT kind, identity_key, install_path, installed_at, last_required_at, metadata_json
		FROM installs WHERE kind = ? AND identity_key = ?`, kind, identityKey)
	return scanInstall(row)
}

// ListInstallsByKind returns every install of the given kind. An empty
// kind returns every install regardless of kind, ordered by kind then
// identity -- used by `omni cache list` with no --kind filter.
func (s *Store) ListInstallsByKind(ctx context.Context, kind string) ([]InstallRecord, error) {
	var rows *sql.Rows
	var err error
	if kind == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT kind, identity_key, install_path, installed_at, last_required_at, metadata_json
			FROM installs ORDER BY kind, identity_key`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT kind, identity_key, install_path, installed_at, last_required_at, metadata_json
			FROM installs WHERE kind = ? ORDER BY identity_key`, kind)
	}
	if err != nil {
		return nil, wrapIOErr(s.paths.CacheDBPath(), err)
	}
	defer func() { _ = rows.Close() }()

	var out []InstallRecord
	for rows.Next() {
		rec, err := scanInstallRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, wrapIOErr(s.paths.CacheDBPath(), rows.Err())
}

// DeleteInstall removes an install row. Callers are responsible for
// removing the install's filesystem tree (via trash staging).
func (s *Store) DeleteInstall(ctx context.Context, kind, identityKey string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM installs WHERE kind = ? AND identity_key = ?`, kind, identityKey)
		return wrapIOErr(s.paths.CacheDBPath(), err)
	})
}

// AddReference adds (or refreshes) a reference from a work directory
// to an install.
func (s *Store) AddReference(ctx context.Context, workdirID, kind, identityKey, dirSubpath string, requiredAt int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO references_ (workdir_id, install_kind, install_identity_key, required_at, dir_subpath)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(workdir_id, install_kind, install_identity_key, dir_subpath) DO UPDATE SET
				required_at = excluded.required_at`,
			workdirID, kind, identityKey, requiredAt, dirSubpath); err != nil {
			return wrapIOErr(s.paths.CacheDBPath(), err)
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE installs SET last_required_at = ? WHERE kind = ? AND identity_key = ?`,
			requiredAt, kind, identityKey)
		return wrapIOErr(s.paths.CacheDBPath(), err)
	})
}

// DropReference removes a reference, e.g. when an operation is no
// longer present in a work directory's manifest.
func (s *Store) DropReference(ctx context.Context, workdirID, kind, identityKey, dirSubpath string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM references_
			WHERE workdir_id = ? AND install_kind = ? AND install_identity_key = ? AND dir_subpath = ?`,
			workdirID, kind, identityKey, dirSubpath)
		return wrapIOErr(s.paths.CacheDBPath(), err)
	})
}

// Reference is one work directory's claim on an install.
type Reference struct {
	WorkDirID   string
	Kind        string
	IdentityKey string
	DirSubpath  string
	RequiredAt  int64
}

// ListReferencesByWorkDir returns every reference a work directory
// currently holds, so an up run can diff them against the plan it just
// computed and drop whichever references the plan no longer needs.
func (s *Store) ListReferencesByWorkDir(ctx context.Context, workdirID string) ([]Reference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT workdir_id, install_kind, install_identity_key, dir_subpath, required_at
		FROM references_ WHERE workdir_id = ?`, workdirID)
	if err != nil {
		return nil, wrapIOErr(s.paths.CacheDBPath(), err)
	}
	defer func() { _ = rows.Close() }()

	var out []Reference
	for rows.Next() {
		var r Reference
		if err := rows.Scan(&r.WorkDirID, &r.Kind, &r.IdentityKey, &r.DirSubpath, &r.RequiredAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, wrapIOErr(s.paths.CacheDBPath(), rows.Err())
}

// ReferenceCount returns how many references an install has, across
// all work directories.
func (s *Store) ReferenceCount(ctx context.Context, kind, identityKey string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM references_ WHERE install_kind = ? AND install_identity_key = ?`,
		kind, identityKey).Scan(&count)
	return count, wrapIOErr(s.paths.CacheDBPath(), err)
}

// ListGCEligible returns installs with zero references whose
// last_required_at is older than cutoff -- candidates for garbage
// collection once the configured grace period has elapsed.
func (s *Store) ListGCEligible(ctx context.Context, cutoff int64) ([]InstallRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.kind, i.identity_key, i.install_path, i.installed_at, i.last_required_at, i.metadata_json
		FROM installs i
		WHERE i.last_required_at < ?
		AND NOT EXISTS (
			SELECT 1 FROM references_ r
			WHERE r.install_kind = i.kind AND r.install_identity_key = i.identity_key
		)
		ORDER BY i.last_required_at`, cutoff)
	if err != nil {
		return nil, wrapIOErr(s.paths.CacheDBPath(), err)
	}
	defer func() { _ = rows.Close() }()

	var out []InstallRecord
	for rows.Next() {
		rec, err := scanInstallRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, wrapIOErr(s.paths.CacheDBPath(), rows.Err())
}

func scanInstall(row *sql.Row) (*InstallRecord, error) {
	var rec InstallRecord
	var metaJSON string
	if err := row.Scan(&rec.Kind, &rec.IdentityKey, &rec.InstallPath, &rec.InstalledAt, &rec.LastRequiredAt, &metaJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanInstallRows(rows *sql.Rows) (*InstallRecord, error) {
	var rec InstallRecord
	var metaJSON string
	if err := rows.Scan(&rec.Kind, &rec.IdentityKey, &rec.InstallPath, &rec.InstalledAt, &rec.LastRequiredAt, &metaJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
		return nil, err
	}
	return &rec, nil
}
