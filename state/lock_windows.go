//go:build windows

package state

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// windowsLocker uses LockFileEx on the first byte of the lock file.
type windowsLocker struct{}

func (windowsLocker) tryLock(f *os.File) error {
	ol := new(windows.Overlapped)
	err := windows.LockFileEx(windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, ol)
	if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
		return errWouldBlock
	}
	return err
}

func (windowsLocker) unlock(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, ol)
}

func newFileLocker() fileLocker {
	return windowsLocker{}
}
