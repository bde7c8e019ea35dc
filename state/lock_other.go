//go:build !unix && !windows

package state

import "os"

// noopLocker leaves the last-writer-wins behaviour in place.
type noopLocker struct{}

func (noopLocker) tryLock(*os.File) error { return nil }
func (noopLocker) unlock(*os.File) error  { return nil }

func newFileLocker() fileLocker {
	return noopLocker{}
}
