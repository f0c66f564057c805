//go:build windows

package services

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"github.com/trobanga/medreport/internal/lib"
)

var (
	kernel32         = syscall.NewLazyDLL("kernel32.dll")
	procLockFileEx   = kernel32.NewProc("LockFileEx")
	procUnlockFileEx = kernel32.NewProc("UnlockFileEx")
)

const (
	LOCKFILE_FAIL_IMMEDIATELY = 0x00000001
	LOCKFILE_EXCLUSIVE_LOCK   = 0x00000002
	ERROR_LOCK_VIOLATION      = syscall.Errno(33) // File is locked by another process
)

func lockFileEx(f *os.File) (uintptr, error) {
	overlapped := syscall.Overlapped{}
	r1, _, err := procLockFileEx.Call(
		uintptr(syscall.Handle(f.Fd())),
		uintptr(LOCKFILE_EXCLUSIVE_LOCK|LOCKFILE_FAIL_IMMEDIATELY),
		0,
		uintptr(1),
		0,
		uintptr(unsafe.Pointer(&overlapped)),
	)
	return r1, err
}

func unlockFileEx(f *os.File) error {
	overlapped := syscall.Overlapped{}
	_, _, err := procUnlockFileEx.Call(
		uintptr(syscall.Handle(f.Fd())),
		0,
		uintptr(1),
		0,
		uintptr(unsafe.Pointer(&overlapped)),
	)
	if err != syscall.Errno(0) {
		return err
	}
	return nil
}

// AcquireDirLock attempts to acquire an exclusive lock on dir (Windows implementation)
func AcquireDirLock(dir string, logger *lib.Logger) (*DirLock, error) {
	lockFile, lockPath, err := openLockFile(dir)
	if err != nil {
		return nil, err
	}

	if r1, err := lockFileEx(lockFile); r1 == 0 {
		_ = lockFile.Close()
		if err == ERROR_LOCK_VIOLATION {
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

// Release releases the directory lock (Windows implementation)
func (dl *DirLock) Release() error {
	if dl.lockFile == nil {
		return nil
	}

	if err := unlockFileEx(dl.lockFile); err != nil {
		dl.logger.Warn("Failed to release lock", "dir", dl.dir, "error", err)
	}

	if err := dl.lockFile.Close(); err != nil {
		dl.logger.Warn("Failed to close lock file", "dir", dl.dir, "error", err)
		return err
	}

	dl.logger.Debug("Released directory lock", "dir", dl.dir, "pid", os.Getpid())
	dl.lockFile = nil

	return nil
}

// IsDirLocked checks if dir is currently locked by any process (Windows implementation)
func IsDirLocked(dir string) bool {
	lockFile, err := os.Open(lockPathFor(dir))
	if err != nil {
		return false
	}
	defer func() {
		_ = lockFile.Close()
	}()

	r1, err := lockFileEx(lockFile)
	if r1 == 0 {
		return err == ERROR_LOCK_VIOLATION
	}

	_ = unlockFileEx(lockFile)
	return false
}
