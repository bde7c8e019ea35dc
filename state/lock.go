package state

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	rkerrors "github.com/vinayprograms/recoverkit/errors"
)

// errWouldBlock is returned by fileLocker.tryLock when another process holds the lock.
var errWouldBlock = errors.New("lock held by another process")

// lockPollInterval is how often a contended lock is retried.
const lockPollInterval = 10 * time.Millisecond

// fileLocker abstracts platform advisory locking on an open file.
type fileLocker interface {
	tryLock(f *os.File) error
	unlock(f *os.File) error
}

type fileLock struct {
	once   sync.Once
	f      *os.File
	locker fileLocker
	err    error
}

func (l *fileLock) Unlock() error {
	l.once.Do(func() {
		uerr := l.locker.unlock(l.f)
		cerr := l.f.Close()
		l.err = errors.Join(uerr, cerr)
	})
	return l.err
}

// acquireFileLock opens path and polls a non-blocking lock until it is held
// or ctx is done.
func acquireFileLock(ctx context.Context, locker fileLocker, path string) (Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, rkerrors.WrapWithCode(err, rkerrors.ErrCodeLockFailed, "open lock file", rkerrors.WithPath(path))
	}

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		err := locker.tryLock(f)
		if err == nil {
			return &fileLock{f: f, locker: locker}, nil
		}
		if !errors.Is(err, errWouldBlock) {
			f.Close()
			return nil, rkerrors.WrapWithCode(err, rkerrors.ErrCodeLockFailed, "lock state file", rkerrors.WithPath(path))
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, rkerrors.WrapWithCode(ctx.Err(), rkerrors.ErrCodeLockFailed, "wait for state lock", rkerrors.WithPath(path))
		case <-ticker.C:
		}
	}
}
