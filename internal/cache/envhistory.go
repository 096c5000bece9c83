package cache

import (
	"context"
	"database/sql"
)

// EnvHistoryRecord is one row of the append-only env-history log: the
// period during which a given environment fingerprint was the active
// one for a work directory.
type EnvHistoryRecord struct {
	ID            int64
	WorkDirID     string
	UsedFromDate  int64
	UsedUntilDate *int64
	LastSeenAt    int64
	EnvFingerprint string
}

// UpsertEnvHistory updates the env-history log for a work directory on
// an `omni up` run. If an open entry (used_until_date IS NULL) already
// has this fingerprint, its LastSeenAt is bumped; otherwise the open
// entry (if any) is closed and a new one is opened.
func (s *Store) UpsertEnvHistory(ctx context.Context, workdirID, fingerprint string, now int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var openID int64
		var openFingerprint string
		err := tx.QueryRowContext(ctx, `
			SELECT id, env_fingerprint FROM env_history
			WHERE workdir_id = ? AND used_until_date IS NULL`, workdirID).Scan(&openID, &openFingerprint)

		switch {
		case err == sql.ErrNoRows:
			_, err := tx.ExecContext(ctx, `
				INSERT INTO env_history (workdir_id, used_from_date, used_until_date, last_seen_at, env_fingerprint)
				VALUES (?, ?, NULL, ?, ?)`, workdirID, now, now, fingerprint)
			return wrapIOErr(s.paths.CacheDBPath(), err)
		case err != nil:
			return wrapIOErr(s.paths.CacheDBPath(), err)
		case openFingerprint == fingerprint:
			_, err := tx.ExecContext(ctx, `UPDATE env_history SET last_seen_at = ? WHERE id = ?`, now, openID)
			return wrapIOErr(s.paths.CacheDBPath(), err)
		default:
			if _, err := tx.ExecContext(ctx, `
				UPDATE env_history SET used_until_date = ?, last_seen_at = ? WHERE id = ?`, now, now, openID); err != nil {
				return wrapIOErr(s.paths.CacheDBPath(), err)
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO env_history (workdir_id, used_from_date, used_until_date, last_seen_at, env_fingerprint)
				VALUES (?, ?, NULL, ?, ?)`, workdirID, now, now, fingerprint)
			return wrapIOErr(s.paths.CacheDBPath(), err)
		}
	})
}

// CloseEnvHistory closes workdirID's open entry immediately, regardless
// of fingerprint. Down calls this once every reference the work
// directory held has been dropped, since its environment is no longer
// active and CloseStaleEnvHistory's grace-period cutoff shouldn't have
// to elapse first. A no-op if no entry is open.
func (s *Store) CloseEnvHistory(ctx context.Context, workdirID string, now int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE env_history SET used_until_date = ?, last_seen_at = ?
			WHERE workdir_id = ? AND used_until_date IS NULL`, now, now, workdirID)
		return wrapIOErr(s.paths.CacheDBPath(), err)
	})
}

// CloseStaleEnvHistory closes any open entries whose last_seen_at is
// older than cutoff -- the work directory has not run `omni up` since,
// so its environment should no longer be considered active.
func (s *Store) CloseStaleEnvHistory(ctx context.Context, cutoff, now int64) (int64, error) {
	var affected int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE env_history SET used_until_date = ?
			WHERE used_until_date IS NULL AND last_seen_at < ?`, now, cutoff)
		if err != nil {
			return wrapIOErr(s.paths.CacheDBPath(), err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// TrimEnvHistory deletes closed rows older than retentionCutoff, then
// trims any work directory with more than maxPerWorkdir closed rows
// down to that many (newest kept), then trims the global total of
// closed rows down to maxTotal.
func (s *Store) TrimEnvHistory(ctx context.Context, retentionCutoff int64, maxPerWorkdir, maxTotal int) (int64, error) {
	var totalAffected int64

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM env_history WHERE used_until_date IS NOT NULL AND used_until_date < ?`, retentionCutoff)
		if err != nil {
			return wrapIOErr(s.paths.CacheDBPath(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		totalAffected += n

		res, err = tx.ExecContext(ctx, `
			DELETE FROM env_history
			WHERE used_until_date IS NOT NULL AND id IN (
				SELECT id FROM (
					SELECT id, ROW_NUMBER() OVER (
						PARTITION BY workdir_id ORDER BY used_until_date DESC
					) AS rn
					FROM env_history WHERE used_until_date IS NOT NULL
				) ranked WHERE rn > ?
			)`, maxPerWorkdir)
		if err != nil {
			return wrapIOErr(s.paths.CacheDBPath(), err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		totalAffected += n

		res, err = tx.ExecContext(ctx, `
			DELETE FROM env_history
			WHERE used_until_date IS NOT NULL AND id IN (
				SELECT id FROM (
					SELECT id, ROW_NUMBER() OVER (ORDER BY used_until_date DESC) AS rn
					FROM env_history WHERE used_until_date IS NOT NULL
				) ranked WHERE rn > ?
			)`, maxTotal)
		if err != nil {
			return wrapIOErr(s.paths.CacheDBPath(), err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		totalAffected += n

		return nil
	})

	return totalAffected, err
}
