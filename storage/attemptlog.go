package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// AttemptLog is an append-only JSON Lines log of fetch attempts. One record
// per line keeps the log greppable and safe to append to across runs.
type AttemptLog struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// NewAttemptLog opens (or creates) the attempt log at path for appending.
func NewAttemptLog(path string) (*AttemptLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StorageError{Op: "append", Entity: "attempt_log", Path: path, Err: err}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &StorageError{Op: "append", Entity: "attempt_log", Path: path, Err: err}
	}
	return &AttemptLog{path: path, file: f}, nil
}

// Append writes one attempt record as a single JSON line.
func (l *AttemptLog) Append(rec AttemptRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return &StorageError{Op: "append", Entity: "attempt_log", Path: l.path, Err: err}
	}
	data = append(data, '\n')
	if _, err := l.file.Write(data); err != nil {
		return &StorageError{Op: "append", Entity: "attempt_log", Path: l.path, Err: err}
	}
	return nil
}

// Path returns the attempt log location.
func (l *AttemptLog) Path() string { return l.path }

// Close closes the underlying file.
func (l *AttemptLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// ReadAttemptLog reads every record from an attempt log file. Intended for
// the status command and for inspecting a finished run.
func ReadAttemptLog(path string) ([]AttemptRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "load", Entity: "attempt_log", Path: path, Err: err}
	}
	defer f.Close()

	var records []AttemptRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec AttemptRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, &StorageError{Op: "load", Entity: "attempt_log", Path: path, Err: err}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, &StorageError{Op: "load", Entity: "attempt_log", Path: path, Err: err}
	}
	return records, nil
}
