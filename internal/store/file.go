package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mcotta/presenca-bot/internal/model"
)

// FileStore keeps the whole event map in memory and mirrors it to a single
// JSON file, rewritten in full after every mutation. The file is a top-level
// object keyed by event name; see model.Event for the value format.
//
// All operations serialize on one mutex, so the store is safe for the
// concurrent interaction sessions the gateway delivers.
type FileStore struct {
	path string

	mu     sync.Mutex
	events map[string]*model.Event
}

// NewFileStore constructs a FileStore persisting to path. Call Load before
// first use.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		events: make(map[string]*model.Event),
	}
}

// Load reads the persisted file. A missing file yields an empty store; an
// unparseable one yields ErrMalformedState.
func (s *FileStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.events = make(map[string]*model.Event)
			return nil
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	events := make(map[string]*model.Event)
	if err := json.Unmarshal(data, &events); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrMalformedState, s.path, err)
	}
	// Old files may carry nulls for empty sections.
	for _, e := range events {
		if e.Confirmed == nil {
			e.Confirmed = make(map[string]model.ClassLabel)
		}
		if e.Declined == nil {
			e.Declined = make(map[string]model.ClassLabel)
		}
	}
	s.events = events
	return nil
}

// save rewrites the whole file. It writes to a temp file in the same
// directory and renames it over the target, so a crash mid-write cannot
// corrupt previously committed data. Callers must hold s.mu.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.events, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".eventos-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Create inserts an empty event and persists, or fails with
// ErrAlreadyExists.
func (s *FileStore) Create(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	s.events[name] = model.NewEvent()
	return s.save()
}

// Delete removes an event and persists, or fails with ErrNotFound.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(s.events, name)
	return s.save()
}

// Get returns a snapshot of the named event or ErrNotFound.
func (s *FileStore) Get(ctx context.Context, name string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return cloneEvent(e), nil
}

// Record applies a response and persists. An unknown event is created
// implicitly.
func (s *FileStore) Record(ctx context.Context, name, userID string, intent model.Intent, class model.ClassLabel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[name]
	if !ok {
		e = model.NewEvent()
		s.events[name] = e
	}
	e.Record(userID, intent, class)
	return s.save()
}
