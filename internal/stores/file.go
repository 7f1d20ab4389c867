package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const fileDocumentVersion = 1

// fileDocument is the on-disk shape of a FileStore: one JSON object
// holding every record, rewritten whole on each mutation.
type fileDocument struct {
	Version int               `json:"version"`
	Records map[string]string `json:"records"`
}

// FileStore persists records as a single JSON document. Writes go to a
// temp file in the same directory followed by an atomic rename, so a
// crash mid-write never leaves a truncated document behind.
type FileStore struct {
	path string
	mu   sync.RWMutex
	data map[string]string
	hub  *watchHub
}

// NewFileStore opens or creates the document at path. A missing file is
// an empty store; a present file must parse as a known document version.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		data: make(map[string]string),
		hub:  newWatchHub(),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: corrupt document: %v", ErrStorageUnavailable, err)
	}
	if doc.Version != fileDocumentVersion {
		return nil, fmt.Errorf("%w: unknown document version %d", ErrStorageUnavailable, doc.Version)
	}
	if doc.Records != nil {
		s.data = doc.Records
	}

	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	value, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	old, existed := s.data[key]
	s.data[key] = value
	err := s.persistLocked()
	if err != nil {
		// Roll back so memory and disk stay in agreement.
		if existed {
			s.data[key] = old
		} else {
			delete(s.data, key)
		}
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.hub.publish(ChangeEvent{Key: key, Op: ChangeSet, OldValue: old, NewValue: value})
	return nil
}

func (s *FileStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	old, ok := s.data[key]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.data, key)
	err := s.persistLocked()
	if err != nil {
		s.data[key] = old
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.hub.publish(ChangeEvent{Key: key, Op: ChangeRemove, OldValue: old})
	return nil
}

func (s *FileStore) ListKeys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	return keys, nil
}

func (s *FileStore) Watch(ctx context.Context) (<-chan ChangeEvent, error) {
	return s.hub.subscribe(ctx), nil
}

func (s *FileStore) persistLocked() error {
	doc := fileDocument{Version: fileDocumentVersion, Records: s.data}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
