// Package history records the trigger uploads made through the service.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"rootle/internal/localstore"
	"rootle/internal/types"
)

// DefaultLimit caps how many entries are retained.
const DefaultLimit = 500

// Entry is one upload attempt.
type Entry struct {
	ID              string            `json:"id"`
	ServiceType     types.ServiceType `json:"serviceType"`
	FileName        string            `json:"fileName"`
	DestinationPath string            `json:"destinationPath"`
	BucketName      string            `json:"bucketName"`
	SFTPUser        string            `json:"sftpUser"`
	Success         bool              `json:"success"`
	Error           string            `json:"error,omitempty"`
	UploadedAt      time.Time         `json:"uploadedAt"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	ServiceType types.ServiceType
	Limit       int
}

// Backend persists the entry list, oldest first.
type Backend interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
	backend Backend
	logger  *slog.Logger
}

// NewStore loads existing entries from backend. limit <= 0 means DefaultLimit.
func NewStore(ctx context.Context, backend Backend, limit int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	entries, err := backend.Load(ctx)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStorage, "failed to load upload history", err)
	}
	return &Store{entries: trim(entries, limit), limit: limit, backend: backend, logger: logger}, nil
}

// Append records e, assigning an ID when it has none. The oldest entries are
// dropped once the limit is reached.
func (s *Store) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := trim(append(slices.Clone(s.entries), e), s.limit)
	if err := s.backend.Save(ctx, next); err != nil {
		return Entry{}, types.NewAppError(types.ErrCodeInternalStorage, "failed to save upload history", fmt.Errorf("history save: %w", err))
	}
	s.entries = next
	return e, nil
}

// List returns matching entries, newest first.
func (s *Store) List(_ context.Context, f Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if f.ServiceType != "" && e.ServiceType != f.ServiceType {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Save(ctx, []Entry{}); err != nil {
		return types.NewAppError(types.ErrCodeInternalStorage, "failed to clear upload history", err)
	}
	s.entries = nil
	s.logger.InfoContext(ctx, "upload history cleared")
	return nil
}

func trim(entries []Entry, limit int) []Entry {
	if len(entries) <= limit {
		return entries
	}
	return entries[len(entries)-limit:]
}

// FileBackend stores the history as a JSON document.
type FileBackend struct {
	file *localstore.File
}

// NewFileBackend returns a FileBackend storing its document at path.
func NewFileBackend(path string) (*FileBackend, error) {
	f, err := localstore.NewFile(path)
	if err != nil {
		return nil, err
	}
	return &FileBackend{file: f}, nil
}

type fileDocument struct {
	Entries []Entry `json:"entries"`
}

// Load implements Backend.
func (b *FileBackend) Load(_ context.Context) ([]Entry, error) {
	var doc fileDocument
	if _, err := b.file.Read(&doc); err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

// Save implements Backend.
func (b *FileBackend) Save(_ context.Context, entries []Entry) error {
	return b.file.Write(fileDocument{Entries: entries})
}

// MemoryBackend keeps the history in process memory.
type MemoryBackend struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Load implements Backend.
func (b *MemoryBackend) Load(_ context.Context) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.entries), nil
}

// Save implements Backend.
func (b *MemoryBackend) Save(_ context.Context, entries []Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = slices.Clone(entries)
	return nil
}
