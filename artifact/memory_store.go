package artifact

import (
	"sync"
	"time"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// MemoryStore keeps artifacts in memory with the same codecs and manifest
// checks as FileStore. It backs tests and in-process pipelines.
type MemoryStore struct {
	mu        sync.Mutex
	inRun     bool
	runID     string
	staged    map[Key][]byte
	entries   map[Key]FileEntry
	committed map[Key][]byte
	manifest  *Manifest
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Begin(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inRun {
		return errors.NewValueError("MemoryStore.Begin", "a run is already in progress")
	}
	s.inRun = true
	s.runID = runID
	s.staged = make(map[Key][]byte)
	s.entries = make(map[Key]FileEntry)
	s.committed = nil
	s.manifest = nil
	return nil
}

func (s *MemoryStore) Save(key Key, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRun {
		return errors.NewValueError("MemoryStore.Save", "no run in progress; call Begin first")
	}
	data, entry, err := encodeKey(key, value)
	if err != nil {
		return err
	}
	s.staged[key] = data
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Commit(m Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRun {
		return errors.NewValueError("MemoryStore.Commit", "no run in progress; call Begin first")
	}
	m.RunID = s.runID
	if m.CompletedAt.IsZero() {
		m.CompletedAt = time.Now().UTC()
	}
	m.Files = s.entries
	s.manifest = &m
	s.committed = s.staged
	s.inRun = false
	s.staged = nil
	s.entries = nil
	return nil
}

func (s *MemoryStore) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inRun = false
	s.staged = nil
	s.entries = nil
	return nil
}

func (s *MemoryStore) Manifest() (Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manifest == nil {
		return Manifest{}, errors.NewArtifactError(errors.MissingArtifact, "manifest", "no completed training run")
	}
	return *s.manifest, nil
}

func (s *MemoryStore) Load(key Key, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manifest == nil {
		return errors.NewArtifactError(errors.MissingArtifact, "manifest", "no completed training run")
	}
	entry, ok := s.manifest.Files[key]
	data, present := s.committed[key]
	if !ok || !present {
		return errors.NewMissingArtifact(string(key))
	}
	return decodeKey(key, data, entry, value)
}

// Tamper replaces the committed bytes of key. Tests use it to simulate a
// torn artifact set.
func (s *MemoryStore) Tamper(key Key, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed != nil {
		s.committed[key] = data
	}
}
