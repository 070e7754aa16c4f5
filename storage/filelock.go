//go:build !windows

package storage

import (
	"os"
	"syscall"
	"time"
)

// FileLock provides advisory file locking via flock(2). The extraction loop
// assumes a single active run per state file; the lock turns a violated
// assumption into an early ErrLockTimeout instead of interleaved writes.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock for the given state file. The lock file lives
// at path + ".lock" and is not acquired until Lock() is called.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// Lock acquires an exclusive lock, polling until the timeout elapses.
// Returns ErrLockTimeout if the lock cannot be acquired in time.
func (l *FileLock) Lock(timeout time.Duration) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return &StorageError{Op: "lock", Entity: "progress", Path: l.path, Err: err}
	}

	deadline := time.Now().Add(timeout)
	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			l.file = f
			return nil
		}
		if time.Now().After(deadline) {
			f.Close()
			return ErrLockTimeout
		}
		time.Sleep(lockPollInterval)
	}
}

// Unlock releases the lock and removes the lock file.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	os.Remove(l.path)
	l.file = nil
	return nil
}
