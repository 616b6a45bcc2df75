// Package profiles keeps named AWS credential profiles on local disk. At most
// one profile is active; it supplies credentials when a request carries none.
package profiles

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"rootle/internal/types"
)

// Profile is a stored set of AWS credentials.
type Profile struct {
	ID              string
	Name            string
	AccessKeyID     string
	SecretAccessKey types.SecretString
	Region          string
	SessionToken    types.SecretString
	IsActive        bool
	IsValid         *bool
	LastValidated   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Credentials returns the profile's credentials for signing requests.
func (p Profile) Credentials() types.AWSCredentials {
	return types.AWSCredentials{
		AccessKeyID:     p.AccessKeyID,
		SecretAccessKey: p.SecretAccessKey,
		Region:          p.Region,
		SessionToken:    p.SessionToken,
	}
}

// CreateInput holds the fields for a new profile.
type CreateInput struct {
	Name            string `json:"name" validate:"required,max=100"`
	AccessKeyID     string `json:"accessKeyId" validate:"required"`
	SecretAccessKey string `json:"secretAccessKey" validate:"required"`
	Region          string `json:"region" validate:"required"`
	SessionToken    string `json:"sessionToken,omitempty"`
}

// UpdateInput changes only the fields that are non-nil.
type UpdateInput struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	AccessKeyID     *string `json:"accessKeyId,omitempty" validate:"omitempty,min=1"`
	SecretAccessKey *string `json:"secretAccessKey,omitempty" validate:"omitempty,min=1"`
	Region          *string `json:"region,omitempty" validate:"omitempty,min=1"`
	SessionToken    *string `json:"sessionToken,omitempty"`
}

// Backend persists the full profile list.
type Backend interface {
	Load(ctx context.Context) ([]Profile, error)
	Save(ctx context.Context, profiles []Profile) error
}

// Store is the profile registry. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	profiles []Profile
	backend  Backend
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewStore loads existing profiles from backend.
func NewStore(ctx context.Context, backend Backend, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loaded, err := backend.Load(ctx)
	if err != nil {
		return nil, storageError("load", err)
	}
	return &Store{
		profiles: loaded,
		backend:  backend,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}, nil
}

// List returns all profiles in creation order.
func (s *Store) List(_ context.Context) ([]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.profiles), nil
}

// Get returns the profile with id.
func (s *Store) Get(_ context.Context, id string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(id)
	if i < 0 {
		return Profile{}, notFound(id)
	}
	return s.profiles[i], nil
}

// Active returns the active profile, if any.
func (s *Store) Active(_ context.Context) (Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.IsActive {
			return p, true, nil
		}
	}
	return Profile{}, false, nil
}

// ProfileCredentials returns the credentials of the profile with id.
func (s *Store) ProfileCredentials(ctx context.Context, id string) (types.AWSCredentials, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return types.AWSCredentials{}, err
	}
	return p.Credentials(), nil
}

// ActiveCredentials returns the credentials of the active profile, if any.
func (s *Store) ActiveCredentials(ctx context.Context) (types.AWSCredentials, bool, error) {
	p, ok, err := s.Active(ctx)
	if err != nil || !ok {
		return types.AWSCredentials{}, false, err
	}
	return p.Credentials(), true, nil
}

// Create adds a profile. The first profile stored becomes active.
func (s *Store) Create(ctx context.Context, in CreateInput) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p := Profile{
		ID:              s.newID(),
		Name:            in.Name,
		AccessKeyID:     in.AccessKeyID,
		SecretAccessKey: types.SecretString(in.SecretAccessKey),
		Region:          in.Region,
		SessionToken:    types.SecretString(in.SessionToken),
		IsActive:        len(s.profiles) == 0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	next := append(slices.Clone(s.profiles), p)
	if err := s.commit(ctx, next); err != nil {
		return Profile{}, err
	}

	s.logger.InfoContext(ctx, "profile created", "profile_id", p.ID, "active", p.IsActive)
	return p, nil
}

// Update applies the non-nil fields of in.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return Profile{}, notFound(id)
	}

	next := slices.Clone(s.profiles)
	p := &next[i]
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.AccessKeyID != nil {
		p.AccessKeyID = *in.AccessKeyID
	}
	if in.SecretAccessKey != nil {
		p.SecretAccessKey = types.SecretString(*in.SecretAccessKey)
	}
	if in.Region != nil {
		p.Region = *in.Region
	}
	if in.SessionToken != nil {
		p.SessionToken = types.SecretString(*in.SessionToken)
	}
	p.UpdatedAt = s.now()

	if err := s.commit(ctx, next); err != nil {
		return Profile{}, err
	}
	return next[i], nil
}

// Delete removes a profile. Deleting the active profile activates the first
// remaining one.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return notFound(id)
	}

	wasActive := s.profiles[i].IsActive
	next := slices.Delete(slices.Clone(s.profiles), i, i+1)
	if wasActive && len(next) > 0 {
		next[0].IsActive = true
	}

	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "profile deleted", "profile_id", id, "was_active", wasActive)
	return nil
}

// SetActive makes id the only active profile.
func (s *Store) SetActive(ctx context.Context, id string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return Profile{}, notFound(id)
	}

	next := slices.Clone(s.profiles)
	for j := range next {
		next[j].IsActive = j == i
	}

	if err := s.commit(ctx, next); err != nil {
		return Profile{}, err
	}
	return next[i], nil
}

// RecordValidation stores the outcome of a credential check.
func (s *Store) RecordValidation(ctx context.Context, id string, valid bool, checkedAt time.Time) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return Profile{}, notFound(id)
	}

	next := slices.Clone(s.profiles)
	next[i].IsValid = &valid
	next[i].LastValidated = &checkedAt

	if err := s.commit(ctx, next); err != nil {
		return Profile{}, err
	}
	return next[i], nil
}

// commit persists next and then makes it current. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next []Profile) error {
	if err := s.backend.Save(ctx, next); err != nil {
		return storageError("save", err)
	}
	s.profiles = next
	return nil
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.profiles, func(p Profile) bool { return p.ID == id })
}

func notFound(id string) *types.AppError {
	return types.NewAppErrorWithDetails(types.ErrCodeNotFoundProfile, "profile not found", nil, map[string]any{"id": id})
}

func storageError(op string, err error) *types.AppError {
	return types.NewAppError(types.ErrCodeInternalStorage, "failed to "+op+" profiles", fmt.Errorf("profiles %s: %w", op, err))
}
