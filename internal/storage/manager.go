package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/insightforge/backend/internal/models"
)

// ErrNotFound is returned for unknown file IDs.
var ErrNotFound = errors.New("file not found")

// Store defines the interface for uploaded file storage.
type Store interface {
	Save(name, contentType string, r io.Reader) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	Open(id string) (io.ReadCloser, error)
	List(limit int) ([]*models.FileInfo, error)
	SetStatus(id, status string) error
	Delete(id string) error
}

type storedFile struct {
	info *models.FileInfo
	data []byte
}

// MemoryStore implements Store in process memory. Uploads live only as long as
// the session that references them; nothing is written to disk.
type MemoryStore struct {
	mu       sync.RWMutex
	files    map[string]*storedFile
	maxBytes int64
}

// NewMemoryStore creates a new MemoryStore. Save reads at most maxBytes+1
// bytes per file; a non-positive maxBytes disables the cap.
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{
		files:    make(map[string]*storedFile),
		maxBytes: maxBytes,
	}
}

// Save stores the content of r under a new ID.
func (s *MemoryStore) Save(name, contentType string, r io.Reader) (*models.FileInfo, error) {
	if s.maxBytes > 0 {
		// One extra byte lets the ingestor notice oversized content.
		r = io.LimitReader(r, s.maxBytes+1)
	}

	var buf bytes.Buffer
	size, err := io.Copy(&buf, r)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	info := &models.FileInfo{
		ID:          uuid.New().String(),
		Name:        name,
		ContentType: contentType,
		Size:        size,
		SizeLabel:   humanize.Bytes(uint64(size)),
		UploadedAt:  time.Now(),
		Status:      "uploaded",
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[info.ID] = &storedFile{info: info, data: buf.Bytes()}

	return info, nil
}

// Get retrieves file metadata by ID.
func (s *MemoryStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	info := *f.info
	return &info, nil
}

// Open returns a reader over the stored content.
func (s *MemoryStore) Open(id string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// List returns the most recent files.
func (s *MemoryStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.FileInfo, 0, len(s.files))
	for _, f := range s.files {
		info := *f.info
		list = append(list, &info)
	}

	// Sort by UploadedAt desc
	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// SetStatus updates the status shown for a file.
func (s *MemoryStore) SetStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	f.info.Status = status
	return nil
}

// Delete removes a file from storage.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	delete(s.files, id)
	return nil
}
