//go:build unix

package services

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/trobanga/medreport/internal/lib"
)

// AcquireDirLock attempts to acquire an exclusive lock on dir (Unix implementation).
// Fails immediately if another process holds it.
func AcquireDirLock(dir string, logger *lib.Logger) (*DirLock, error) {
	lockFile, lockPath, err := openLockFile(dir)
	if err != nil {
		return nil, err
	}

	// flock() is advisory - cooperating processes must check the lock
	err = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		_ = lockFile.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, lib.ErrBusy(fmt.Sprintf("Saving into %s", dir))
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	lock := &DirLock{
		dir:      dir,
		lockFile: lockFile,
		lockPath: lockPath,
		logger:   logger,
	}

	if err := lock.writeLockInfo(); err != nil {
		logger.Warn("Failed to write lock info", "dir", dir, "error", err)
	}

	logger.Debug("Acquired directory lock", "dir", dir, "pid", os.Getpid())

	return lock, nil
}

// Release releases the directory lock (Unix implementation)
func (dl *DirLock) Release() error {
	if dl.lockFile == nil {
		return nil
	}

	if err := syscall.Flock(int(dl.lockFile.Fd()), syscall.LOCK_UN); err != nil {
		dl.logger.Warn("Failed to release flock", "dir", dl.dir, "error", err)
	}

	if err := dl.lockFile.Close(); err != nil {
		dl.logger.Warn("Failed to close lock file", "dir", dl.dir, "error", err)
		return err
	}

	dl.logger.Debug("Released directory lock", "dir", dl.dir, "pid", os.Getpid())
	dl.lockFile = nil

	return nil
}

// IsDirLocked checks if dir is currently locked by any process (Unix implementation).
// The check does not keep the lock.
func IsDirLocked(dir string) bool {
	lockFile, err := os.Open(lockPathFor(dir))
	if err != nil {
		return false
	}
	defer func() {
		_ = lockFile.Close()
	}()

	err = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		return errors.Is(err, syscall.EWOULDBLOCK)
	}

	_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
	return false
}
