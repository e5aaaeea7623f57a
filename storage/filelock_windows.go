//go:build windows

package storage

import (
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// FileLock is an advisory lock that keeps two crawls from appending to the
// same output file. It uses LockFileEx.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a file lock at path + ".lock". The lock is not
// acquired until Lock is called.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// Lock acquires an exclusive lock, polling until timeout.
// Returns ErrLockTimeout if another process holds it.
func (l *FileLock) Lock(timeout time.Duration) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return &StorageError{Op: "lock", Entity: "file", ID: l.path, Err: err}
	}

	deadline := time.Now().Add(timeout)
	for {
		var ol windows.Overlapped
		err := windows.LockFileEx(windows.Handle(f.Fd()),
			windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, &ol)
		if err == nil {
			l.file = f
			return nil
		}
		if !time.Now().Before(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	f.Close()
	return &StorageError{Op: "lock", Entity: "file", ID: l.path, Err: ErrLockTimeout}
}

// Unlock releases the lock and removes the lock file.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	var ol windows.Overlapped
	windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, 1, 0, &ol)
	l.file.Close()
	os.Remove(l.path)
	l.file = nil
	return nil
}
