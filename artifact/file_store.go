package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
	"github.com/YuminosukeSato/imrcast/pkg/log"
)

// DefaultDir is where the CLI keeps artifacts and plots.
const DefaultDir = "output_plots"

// DefaultLockTimeout bounds how long Begin waits for another run's lock.
const DefaultLockTimeout = 30 * time.Second

const lockFile = ".lock"

// FileStore keeps one run's artifacts as files in a directory.
type FileStore struct {
	dir         string
	lockTimeout time.Duration
	logger      log.Logger

	mu     sync.Mutex
	lock   *fileLock
	runID  string
	staged map[Key]FileEntry
}

var _ Store = (*FileStore)(nil)

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLockTimeout overrides DefaultLockTimeout.
func WithLockTimeout(d time.Duration) FileStoreOption {
	return func(s *FileStore) { s.lockTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) FileStoreOption {
	return func(s *FileStore) { s.logger = l }
}

// NewFileStore returns a store rooted at dir. The directory is created on
// Begin, so a store can be opened for reading before any run exists.
func NewFileStore(dir string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{dir: dir, lockTimeout: DefaultLockTimeout, logger: log.GetLogger()}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With(log.ComponentKey, "artifact", log.ArtifactDirKey, dir)
	return s
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

// Begin takes the directory lock and removes the previous run's manifest
// and artifact files. Other files in the directory are left alone.
func (s *FileStore) Begin(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock != nil {
		return errors.NewValueError("FileStore.Begin", "a run is already in progress")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create artifact directory %s", s.dir)
	}

	lock, err := newFileLock(filepath.Join(s.dir, lockFile), s.lockTimeout)
	if err != nil {
		return err
	}
	if err := lock.Lock(); err != nil {
		lock.Unlock()
		return err
	}

	// manifest first: from here on readers see no completed run
	stale := []string{ManifestFile}
	for _, k := range Keys {
		stale = append(stale, FileName(k))
	}
	for _, name := range stale {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			lock.Unlock()
			return errors.Wrapf(err, "remove stale artifact %s", name)
		}
	}

	s.lock = lock
	s.runID = runID
	s.staged = make(map[Key]FileEntry, len(Keys))
	s.logger.Debug("Artifact run started", log.RunIDKey, runID)
	return nil
}

// Save encodes value and writes it with write-then-rename.
func (s *FileStore) Save(key Key, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock == nil {
		return errors.NewValueError("FileStore.Save", "no run in progress; call Begin first")
	}

	data, entry, err := encodeKey(key, value)
	if err != nil {
		return err
	}
	if err := atomicWrite(filepath.Join(s.dir, entry.Name), data); err != nil {
		return err
	}
	s.staged[key] = entry

	s.logger.Debug("Artifact saved",
		log.OperationKey, log.OperationSave,
		log.ArtifactKey, string(key),
		log.PathKey, entry.Name,
	)
	return nil
}

// Commit writes the manifest listing every saved key and releases the lock.
func (s *FileStore) Commit(m Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock == nil {
		return errors.NewValueError("FileStore.Commit", "no run in progress; call Begin first")
	}

	m.RunID = s.runID
	if m.CompletedAt.IsZero() {
		m.CompletedAt = time.Now().UTC()
	}
	m.Files = s.staged

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal manifest")
	}
	if err := atomicWrite(filepath.Join(s.dir, ManifestFile), data); err != nil {
		return err
	}

	s.logger.Info("Artifacts committed",
		log.RunIDKey, m.RunID,
		log.ModelNameKey, m.Model,
	)
	return s.release()
}

// Abort releases the lock without writing a manifest.
func (s *FileStore) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock == nil {
		return nil
	}
	s.logger.Warn("Artifact run aborted", log.RunIDKey, s.runID)
	return s.release()
}

func (s *FileStore) release() error {
	err := s.lock.Unlock()
	s.lock = nil
	s.runID = ""
	s.staged = nil
	return err
}

// Manifest reads the committed manifest.
func (s *FileStore) Manifest() (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ManifestFile))
	if os.IsNotExist(err) {
		return Manifest{}, errors.NewArtifactError(errors.MissingArtifact, "manifest",
			"no completed training run in "+s.dir)
	}
	if err != nil {
		return Manifest{}, errors.Wrap(err, "read manifest")
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, errors.NewArtifactError(errors.CorruptArtifact, "manifest", err.Error())
	}
	return m, nil
}

// Load reads key, checks it against the manifest and decodes it.
func (s *FileStore) Load(key Key, value any) error {
	m, err := s.Manifest()
	if err != nil {
		return err
	}
	entry, ok := m.Files[key]
	if !ok {
		return errors.NewMissingArtifact(string(key))
	}

	data, err := os.ReadFile(filepath.Join(s.dir, entry.Name))
	if os.IsNotExist(err) {
		return errors.NewMissingArtifact(string(key))
	}
	if err != nil {
		return errors.Wrapf(err, "read artifact %s", key)
	}
	if err := decodeKey(key, data, entry, value); err != nil {
		return err
	}

	s.logger.Debug("Artifact loaded",
		log.OperationKey, log.OperationLoad,
		log.ArtifactKey, string(key),
		log.RunIDKey, m.RunID,
	)
	return nil
}

// atomicWrite writes data to a temp file in the same directory and renames
// it over path.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "rename %s", tmp)
	}
	return nil
}
