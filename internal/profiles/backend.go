package profiles

import (
	"context"
	"slices"
	"sync"
	"time"

	"rootle/internal/localstore"
	"rootle/internal/types"
)

// FileBackend keeps profiles in a single JSON document. Secrets are written
// in clear text, so the file is created with owner-only permissions.
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
	Profiles []fileRecord `json:"profiles"`
}

type fileRecord struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	AccessKeyID     string     `json:"accessKeyId"`
	SecretAccessKey string     `json:"secretAccessKey"`
	Region          string     `json:"region"`
	SessionToken    string     `json:"sessionToken,omitempty"`
	IsActive        bool       `json:"isActive"`
	IsValid         *bool      `json:"isValid,omitempty"`
	LastValidated   *time.Time `json:"lastValidated,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Load implements Backend.
func (b *FileBackend) Load(_ context.Context) ([]Profile, error) {
	var doc fileDocument
	if _, err := b.file.Read(&doc); err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(doc.Profiles))
	for _, r := range doc.Profiles {
		out = append(out, Profile{
			ID:              r.ID,
			Name:            r.Name,
			AccessKeyID:     r.AccessKeyID,
			SecretAccessKey: types.SecretString(r.SecretAccessKey),
			Region:          r.Region,
			SessionToken:    types.SecretString(r.SessionToken),
			IsActive:        r.IsActive,
			IsValid:         r.IsValid,
			LastValidated:   r.LastValidated,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
		})
	}
	return out, nil
}

// Save implements Backend.
func (b *FileBackend) Save(_ context.Context, profiles []Profile) error {
	doc := fileDocument{Profiles: make([]fileRecord, 0, len(profiles))}
	for _, p := range profiles {
		doc.Profiles = append(doc.Profiles, fileRecord{
			ID:              p.ID,
			Name:            p.Name,
			AccessKeyID:     p.AccessKeyID,
			SecretAccessKey: p.SecretAccessKey.Unmask(),
			Region:          p.Region,
			SessionToken:    p.SessionToken.Unmask(),
			IsActive:        p.IsActive,
			IsValid:         p.IsValid,
			LastValidated:   p.LastValidated,
			CreatedAt:       p.CreatedAt,
			UpdatedAt:       p.UpdatedAt,
		})
	}
	return b.file.Write(doc)
}

// MemoryBackend keeps profiles in process memory. Useful for tests and for
// running without a data directory.
type MemoryBackend struct {
	mu       sync.Mutex
	profiles []Profile
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Load implements Backend.
func (b *MemoryBackend) Load(_ context.Context) ([]Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.profiles), nil
}

// Save implements Backend.
func (b *MemoryBackend) Save(_ context.Context, profiles []Profile) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profiles = slices.Clone(profiles)
	return nil
}
