//go:build !windows

package artifact

import (
	"os"
	"syscall"
	"time"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// fileLock is an exclusive flock() on a lock file. It keeps two training
// runs from interleaving writes in the same directory.
type fileLock struct {
	file    *os.File
	timeout time.Duration
	locked  bool
}

func newFileLock(path string, timeout time.Duration) (*fileLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open lock file")
	}
	return &fileLock{file: file, timeout: timeout}, nil
}

// Lock polls a non-blocking flock with backoff until timeout.
func (l *fileLock) Lock() error {
	if l.locked {
		return nil
	}

	deadline := time.Now().Add(l.timeout)
	sleep := 10 * time.Millisecond
	for {
		err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			l.locked = true
			return nil
		}
		if time.Now().After(deadline) {
			return errors.Newf("artifact lock timeout after %v", l.timeout)
		}
		time.Sleep(sleep)
		if sleep < 100*time.Millisecond {
			sleep *= 2
		}
	}
}

// Unlock releases the lock and closes the file. Safe to call twice.
func (l *fileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	var err error
	if l.locked {
		err = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	}
	l.file.Close()
	l.file = nil
	l.locked = false
	return err
}
