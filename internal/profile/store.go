package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

const DefaultFileName = "button_masher_profiles.json"

var ErrNoProfiles = errors.New("file contains no profiles")

// Store owns the profiles document and the file it was loaded from.
type Store struct {
	mu          sync.RWMutex
	doc         *Document
	defaultPath string
	logger      *zap.Logger
	writes      uint64
}

// NewStore creates a store that falls back to defaultPath when the document
// does not remember a file of its own.
func NewStore(defaultPath string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		doc:         NewDocument(),
		defaultPath: defaultPath,
		logger:      logger,
	}
}

// ReadFile decodes the document stored at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profiles %s: %w", path, err)
	}
	return &doc, nil
}

// WriteFile encodes doc and replaces path atomically.
func WriteFile(path string, doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create profiles dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write profiles %s: %w", path, err)
	}
	return nil
}

// LoadDefault loads the default file. A missing file yields the default
// document; a broken file yields the default document and the parse error.
// Saves go back to the default file even when it names another one.
func (s *Store) LoadDefault() error {
	doc, err := ReadFile(s.defaultPath)
	if err != nil {
		s.mu.Lock()
		s.doc = NewDocument()
		s.doc.LastFilePath = s.defaultPath
		s.mu.Unlock()
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	doc.LastFilePath = s.defaultPath
	doc.Normalize()

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// LoadFrom replaces the document with the one at path. Files without any
// profile are rejected and leave the current document in place.
func (s *Store) LoadFrom(path string) error {
	doc, err := ReadFile(path)
	if err != nil {
		return err
	}
	if len(doc.Profiles) == 0 {
		return fmt.Errorf("%s: %w", path, ErrNoProfiles)
	}
	doc.LastFilePath = path
	doc.Normalize()

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	s.logger.Info("Profiles loaded", zap.String("path", path), zap.Int("profiles", len(doc.Profiles)))
	return nil
}

// Path returns the file the next Save writes to.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pathLocked()
}

func (s *Store) pathLocked() string {
	if s.doc != nil && s.doc.LastFilePath != "" {
		return s.doc.LastFilePath
	}
	return s.defaultPath
}

// Save writes the document to its remembered path.
func (s *Store) Save() error {
	s.mu.RLock()
	path := s.pathLocked()
	doc := s.doc.Clone()
	s.mu.RUnlock()

	doc.LastFilePath = path
	s.markWrite()
	return WriteFile(path, doc)
}

// SaveAs writes the document to path and remembers it.
func (s *Store) SaveAs(path string) error {
	s.mu.Lock()
	s.doc.LastFilePath = path
	doc := s.doc.Clone()
	s.writes++
	s.mu.Unlock()
	return WriteFile(path, doc)
}

func (s *Store) markWrite() {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
}

func (s *Store) lastWrite() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Document returns a snapshot of the current document.
func (s *Store) Document() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Profile returns a snapshot of profile i.
func (s *Store) Profile(i int) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.doc.Profiles) {
		return Profile{}, false
	}
	return s.doc.Profiles[i].Clone(), true
}

// ProfileByKey returns a snapshot of the profile with key k, wherever it
// sits in the list now.
func (s *Store) ProfileByKey(k Key) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.doc.Locate(k)
	if !ok {
		return Profile{}, false
	}
	return s.doc.Profiles[i].Clone(), true
}

// Update applies fn to the live document under the write lock.
func (s *Store) Update(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.doc)
}

// Replace swaps in doc, keeping the remembered file path when doc has none.
func (s *Store) Replace(doc *Document) {
	doc.Normalize()
	s.mu.Lock()
	if doc.LastFilePath == "" {
		doc.LastFilePath = s.pathLocked()
	}
	s.doc = doc
	s.mu.Unlock()
}
