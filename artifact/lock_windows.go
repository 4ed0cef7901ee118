//go:build windows

package artifact

import (
	"os"
	"time"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// fileLock on Windows only creates the lock file. Concurrent training runs
// in one directory are not excluded there; manifest hashes still catch a
// torn artifact set on load.
type fileLock struct {
	file *os.File
}

func newFileLock(path string, _ time.Duration) (*fileLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open lock file")
	}
	return &fileLock{file: file}, nil
}

func (l *fileLock) Lock() error { return nil }

func (l *fileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
