package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps each collection in data/<sport>/<entity>.json as a
// JSON array. A missing file is an empty collection.
type FileStore struct {
	root string
	mu   sync.RWMutex
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{root: dir}, nil
}

type docID struct {
	ID string `json:"id"`
}

func (s *FileStore) List(ctx context.Context, c Collection) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(c)
}

func (s *FileStore) Get(ctx context.Context, c Collection, id string) (json.RawMessage, error) {
	if err := validateKey(c, id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.read(c)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if idOf(doc) == id {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, c, id)
}

func (s *FileStore) Put(ctx context.Context, c Collection, id string, doc json.RawMessage) error {
	if err := validateKey(c, id); err != nil {
		return err
	}
	if got := idOf(doc); got != id {
		return fmt.Errorf("document id %q does not match key %q", got, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.read(c)
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range docs {
		if idOf(existing) == id {
			docs[i] = doc
			replaced = true
			break
		}
	}
	if !replaced {
		docs = append(docs, doc)
	}
	return s.write(c, docs)
}

func (s *FileStore) Delete(ctx context.Context, c Collection, id string) error {
	if err := validateKey(c, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.read(c)
	if err != nil {
		return err
	}
	kept := docs[:0]
	found := false
	for _, doc := range docs {
		if idOf(doc) == id {
			found = true
			continue
		}
		kept = append(kept, doc)
	}
	if !found {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, c, id)
	}
	return s.write(c, kept)
}

func (s *FileStore) path(c Collection) (string, error) {
	for _, part := range []string{c.Sport, c.Entity} {
		if part == "" || strings.ContainsAny(part, `/\`) || part == "." || part == ".." {
			return "", fmt.Errorf("invalid collection %q", c.String())
		}
	}
	return filepath.Join(s.root, c.Sport, c.Entity+".json"), nil
}

func (s *FileStore) read(c Collection) ([]json.RawMessage, error) {
	p, err := s.path(c)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p, err)
	}
	return docs, nil
}

// write replaces the collection file via a temp file and rename.
func (s *FileStore) write(c Collection, docs []json.RawMessage) error {
	p, err := s.path(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(p), err)
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), c.Entity+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", p, err)
	}
	return nil
}

func idOf(doc json.RawMessage) string {
	var d docID
	if err := json.Unmarshal(doc, &d); err != nil {
		return ""
	}
	return d.ID
}
