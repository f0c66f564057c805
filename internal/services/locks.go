package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/trobanga/medreport/internal/lib"
)

// LockFileName is the advisory lock guarding an output directory
const LockFileName = ".medreport.lock"

// DirLock represents a file lock on an artifact output directory.
// Prevents two processes from saving into the same directory at once.
type DirLock struct {
	dir      string
	lockFile *os.File
	lockPath string
	logger   *lib.Logger
}

// WithDirLock executes a function while holding the directory lock
func WithDirLock(dir string, logger *lib.Logger, fn func() error) error {
	lock, err := AcquireDirLock(dir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Error("Failed to release directory lock", "error", err)
		}
	}()

	return fn()
}

func lockPathFor(dir string) string {
	return filepath.Join(dir, LockFileName)
}

func openLockFile(dir string) (*os.File, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create output directory: %w", err)
	}
	lockPath := lockPathFor(dir)
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open lock file: %w", err)
	}
	return lockFile, lockPath, nil
}

// writeLockInfo writes debug information to the lock file
func (dl *DirLock) writeLockInfo() error {
	lockInfo := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	_ = dl.lockFile.Truncate(0)
	_, _ = dl.lockFile.Seek(0, 0)
	_, _ = dl.lockFile.WriteString(lockInfo)
	return dl.lockFile.Sync()
}
