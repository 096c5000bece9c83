// Package cache implements the Cache Store: a single embedded SQL
// database recording work directories, installs, references,
// version catalogs, env-history, and prompt answers.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	omnierrors "github.com/omnicli/omni/internal/errors"
	"github.com/omnicli/omni/internal/path"
)

// lockTimeout is the default wait for the writer lock before callers
// see StoreBusy.
const lockTimeout = 30 * time.Second

// Store is the Cache Store: a SQLite-backed database guarded by a
// PID-bearing file lock for writers, with lock-free reads.
type Store struct {
	paths    *path.Paths
	db       *sql.DB
	fileLock *flock.Flock
	locked   bool
}

// Open opens (creating if necessary) the cache database at paths'
// configured location and brings its schema up to date.
func Open(paths *path.Paths) (*Store, error) {
	if err := path.EnsureDir(paths.CacheRoot()); err != nil {
		return nil, omnierrors.NewStoreIOError(paths.CacheRoot(), err)
	}

	db, err := sql.Open("sqlite", paths.CacheDBPath())
	if err != nil {
		return nil, omnierrors.NewStoreIOError(paths.CacheDBPath(), err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, omnierrors.NewStoreIOError(paths.CacheDBPath(), err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, omnierrors.NewStoreIOError(paths.CacheDBPath(), err)
	}

	s := &Store{
		paths:    paths,
		db:       db,
		fileLock: flock.New(paths.CacheLockPath()),
	}

	if err := s.withWriteLock(context.Background(), func() error {
		if err := applyMigrations(context.Background(), db); err != nil {
			return omnierrors.NewStoreCorruptError(paths.CacheDBPath(), err)
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database handle. The store must be unlocked.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for read-only queries that don't
// need Lock/Unlock bracketing (listings, freshness checks).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Lock acquires the writer lock, waiting up to lockTimeout before
// failing with StoreBusy.
func (s *Store) Lock(ctx context.Context) error {
	if s.locked {
		return nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := s.fileLock.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil || !locked {
		pid, _ := s.readLockPID()
		return omnierrors.NewStoreBusyError(s.paths.CacheLockPath(), pid)
	}

	if err := s.writeLockPID(); err != nil {
		_ = s.fileLock.Unlock()
		return omnierrors.NewStoreIOError(s.paths.CacheLockPath(), err)
	}

	s.locked = true
	return nil
}

// Unlock releases the writer lock.
func (s *Store) Unlock() error {
	if !s.locked {
		return nil
	}
	if err := s.fileLock.Unlock(); err != nil {
		return omnierrors.NewStoreIOError(s.paths.CacheLockPath(), err)
	}
	s.locked = false
	return nil
}

// withWriteLock brackets fn with Lock/Unlock; every public write
// operation in this package goes through it so long-running work
// never holds the lock longer than its own record-keeping step.
func (s *Store) withWriteLock(ctx context.Context, fn func() error) error {
	if err := s.Lock(ctx); err != nil {
		return err
	}
	defer func() { _ = s.Unlock() }()
	return fn()
}

// inTx runs fn inside a transaction opened while the writer lock is
// held, committing on success and rolling back on error or panic.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withWriteLock(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return omnierrors.NewStoreIOError(s.paths.CacheDBPath(), err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return omnierrors.NewStoreIOError(s.paths.CacheDBPath(), err)
		}
		return nil
	})
}

func (s *Store) readLockPID() (int, error) {
	data, err := os.ReadFile(s.paths.CacheLockPath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

func (s *Store) writeLockPID() error {
	return os.WriteFile(s.paths.CacheLockPath(), fmt.Appendf(nil, "%d", os.Getpid()), 0o644)
}

func wrapIOErr(path string, err error) error {
	if err == nil {
		return nil
	}
	return omnierrors.NewStoreIOError(path, err)
}
