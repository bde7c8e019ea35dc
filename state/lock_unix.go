//go:build unix

package state

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// unixLocker uses flock(2). Locks are released on close or process exit.
type unixLocker struct{}

func (unixLocker) tryLock(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return errWouldBlock
	}
	return err
}

func (unixLocker) unlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

func newFileLocker() fileLocker {
	return unixLocker{}
}
