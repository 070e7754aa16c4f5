package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"time"
)

const lockTimeout = 5 * time.Second

// ProgressStore persists extraction progress between runs.
type ProgressStore interface {
	// Load reads the current progress state. A missing file yields a fresh
	// empty state; a corrupt file yields ErrStateCorrupt.
	Load(ctx context.Context) (*ProgressState, error)
	// Save persists the state atomically: a crash during Save leaves either
	// the previous or the new state on disk, never a partial write.
	Save(ctx context.Context, state *ProgressState) error
	// Path returns the location of the persisted state for reporting.
	Path() string
	// Close releases the store's file lock.
	Close() error
}

// JSONProgressStore implements ProgressStore using a single JSON file.
// The file is indented JSON with sorted ID sets so that consecutive
// checkpoints produce minimal, reviewable diffs.
type JSONProgressStore struct {
	path string
	lock *FileLock
	mu   sync.Mutex
}

// NewJSONProgressStore creates a store for the given path and acquires its
// file lock. The lock is held until Close() so that at most one run operates
// on a progress file at a time.
func NewJSONProgressStore(path string) (*JSONProgressStore, error) {
	s := &JSONProgressStore{
		path: path,
		lock: NewFileLock(path),
	}
	if err := s.lock.Lock(lockTimeout); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the progress file, returning a fresh state if none exists yet.
func (s *JSONProgressStore) Load(ctx context.Context) (*ProgressState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewProgressState(), nil
		}
		return nil, &StorageError{Op: "load", Entity: "progress", Path: s.path, Err: err}
	}

	state := &ProgressState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, &StorageError{Op: "load", Entity: "progress", Path: s.path, Err: ErrStateCorrupt}
	}
	if state.Completed == nil {
		state.Completed = []string{}
	}
	if state.PermanentFailures == nil {
		state.PermanentFailures = []string{}
	}
	if err := state.Validate(); err != nil {
		return nil, &StorageError{Op: "load", Entity: "progress", Path: s.path, Err: err}
	}
	return state, nil
}

// Save writes the state to disk atomically.
func (s *JSONProgressStore) Save(ctx context.Context, state *ProgressState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.UpdatedAt = time.Now()

	err := WriteAtomic(s.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	})
	if err != nil {
		return &StorageError{Op: "save", Entity: "progress", Path: s.path, Err: err}
	}
	return nil
}

// Path returns the progress file location.
func (s *JSONProgressStore) Path() string { return s.path }

// Close releases the file lock.
func (s *JSONProgressStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Unlock()
}
