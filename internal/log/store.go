package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/omnicli/omni/internal/operation"
)

// FailedResource holds log information for a plan item that failed
// during Up or Down. Unlike the resource-reconciler's equivalent,
// there is no accumulated command output to attach: operation.Driver
// reports only a final error, not incremental output.
type FailedResource struct {
	Kind  operation.Kind
	Name  string
	Phase string
	Error error
}

// itemMeta holds metadata about a plan item being tracked.
type itemMeta struct {
	kind  operation.Kind
	label string
	phase string
}

// Store records which plan items failed during an Up or Down run and
// persists a short log file for each, so a later "omni logs" lookup
// can explain why without rerunning.
type Store struct {
	baseDir    string
	sessionID  string
	sessionDir string
	mu         sync.Mutex
	metadata   map[string]*itemMeta
	failed     map[string]error
}

// NewStore creates a new Store with a new session under baseDir.
func NewStore(baseDir string) (*Store, error) {
	sessionID := time.Now().Format("20060102T150405")
	sessionDir := filepath.Join(baseDir, sessionID)

	return &Store{
		baseDir:    baseDir,
		sessionID:  sessionID,
		sessionDir: sessionDir,
		metadata:   make(map[string]*itemMeta),
		failed:     make(map[string]error),
	}, nil
}

// resourceKey returns a unique key for a plan item.
func resourceKey(kind operation.Kind, name string) string {
	return string(kind) + "/" + name
}

// RecordStart records the start of a plan item.
func (s *Store) RecordStart(kind operation.Kind, name, phase string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := resourceKey(kind, name)
	s.metadata[key] = &itemMeta{kind: kind, label: name, phase: phase}
}

// RecordError marks a plan item as failed.
func (s *Store) RecordError(kind operation.Kind, name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := resourceKey(kind, name)
	s.failed[key] = err
}

// RecordComplete marks a plan item as successfully completed.
func (s *Store) RecordComplete(kind operation.Kind, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := resourceKey(kind, name)
	delete(s.metadata, key)
}

// FailedResources returns information about all failed plan items.
func (s *Store) FailedResources() []FailedResource {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []FailedResource
	for key, err := range s.failed {
		meta := s.metadata[key]
		if meta == nil {
			continue
		}

		result = append(result, FailedResource{
			Kind:  meta.kind,
			Name:  meta.label,
			Phase: meta.phase,
			Error: err,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Kind != result[j].Kind {
			return result[i].Kind < result[j].Kind
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// Flush writes log files for all failed plan items to disk.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.failed) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.sessionDir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	var errs []error
	for key, failErr := range s.failed {
		meta := s.metadata[key]
		if meta == nil {
			continue
		}

		content := buildLogContent(meta, failErr)
		filename := fmt.Sprintf("%s_%s.log", meta.kind, meta.label)
		logPath := filepath.Join(s.sessionDir, filename)

		if err := os.WriteFile(logPath, []byte(content), 0644); err != nil {
			errs = append(errs, fmt.Errorf("failed to write log for %s: %w", key, err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// SessionDir returns the path to the current session directory.
func (s *Store) SessionDir() string {
	return s.sessionDir
}

// Close removes the session directory if nothing was ever flushed to it.
func (s *Store) Close() {
	entries, err := os.ReadDir(s.sessionDir)
	if err == nil && len(entries) == 0 {
		os.Remove(s.sessionDir)
	}
}

// Cleanup removes old session directories, keeping the most recent keepSessions.
func (s *Store) Cleanup(keepSessions int) error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read logs directory: %w", err)
	}

	var dirs []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		}
	}

	if len(dirs) <= keepSessions {
		return nil
	}

	sort.Slice(dirs, func(i, j int) bool {
		return dirs[i].Name() < dirs[j].Name()
	})

	toRemove := dirs[:len(dirs)-keepSessions]
	for _, d := range toRemove {
		dirPath := filepath.Join(s.baseDir, d.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			return fmt.Errorf("failed to remove old session %s: %w", d.Name(), err)
		}
	}

	return nil
}

// buildLogContent creates the log file content with a header.
func buildLogContent(meta *itemMeta, err error) string {
	var b strings.Builder
	fmt.Fprintln(&b, "# omni apply log")
	fmt.Fprintf(&b, "# Item: %s/%s\n", meta.kind, meta.label)
	fmt.Fprintf(&b, "# Phase: %s\n", meta.phase)
	fmt.Fprintf(&b, "# Timestamp: %s\n", time.Now().Format(time.RFC3339))
	if err != nil {
		fmt.Fprintf(&b, "# Error: %v\n", err)
	}
	return b.String()
}
