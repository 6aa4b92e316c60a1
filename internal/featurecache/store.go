package featurecache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Document is the full persisted cache content, keyed by bucket key.
type Document map[string]*Entry

// DocumentStore persists the cache document. The keyspace is small
// (coarse time-bucketed keys), so the document is loaded fully on
// first access and rewritten fully on every write.
type DocumentStore interface {
	// Load reads the full document. A missing or unreadable document
	// yields an empty one, never an error (documented recovery policy).
	Load(ctx context.Context) (Document, error)

	// Save rewrites the full document.
	Save(ctx context.Context, doc Document) error
}

// FileStore is a DocumentStore backed by a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Compile-time interface check.
var _ DocumentStore = (*FileStore)(nil)

// Load reads the cache file. A missing file or corrupted JSON yields
// an empty document: a cold cache re-fetches, it does not crash.
func (s *FileStore) Load(_ context.Context) (Document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[featurecache] read %s: %v, starting fresh", s.path, err)
		}
		return Document{}, nil
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Printf("[featurecache] corrupted cache file %s: %v, starting fresh", s.path, err)
		return Document{}, nil
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Save rewrites the cache file atomically (temp file + rename).
func (s *FileStore) Save(_ context.Context, doc Document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory DocumentStore for tests and ephemeral runs.
type MemoryStore struct {
	mu  sync.Mutex
	doc Document
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{doc: Document{}}
}

// Compile-time interface check.
var _ DocumentStore = (*MemoryStore)(nil)

// Load returns a copy of the stored document.
func (s *MemoryStore) Load(_ context.Context) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(Document, len(s.doc))
	for k, v := range s.doc {
		entryCopy := *v
		copied[k] = &entryCopy
	}
	return copied, nil
}

// Save replaces the stored document with a copy.
func (s *MemoryStore) Save(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(Document, len(doc))
	for k, v := range doc {
		entryCopy := *v
		copied[k] = &entryCopy
	}
	s.doc = copied
	return nil
}
