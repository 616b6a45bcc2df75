package profiles

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rootle/internal/types"
)

type failingBackend struct {
	MemoryBackend
	saveErr error
}

func (b *failingBackend) Save(ctx context.Context, profiles []Profile) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	return b.MemoryBackend.Save(ctx, profiles)
}

func newTestStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), backend, nil)
	require.NoError(t, err)

	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	s.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, n, 0, time.UTC) }
	return s
}

func sampleInput(name string) CreateInput {
	return CreateInput{
		Name:            name,
		AccessKeyID:     "AKIA" + name,
		SecretAccessKey: "secret-" + name,
		Region:          "us-east-1",
	}
}

func TestStore_CreateFirstIsActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	first, err := s.Create(ctx, sampleInput("a"))
	require.NoError(t, err)
	assert.True(t, first.IsActive)
	assert.Equal(t, "id-1", first.ID)

	second, err := s.Create(ctx, sampleInput("b"))
	require.NoError(t, err)
	assert.False(t, second.IsActive)

	active, ok, err := s.Active(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, active.ID)
}

func TestStore_DeleteActiveReassigns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	a, _ := s.Create(ctx, sampleInput("a"))
	b, _ := s.Create(ctx, sampleInput("b"))
	_, _ = s.Create(ctx, sampleInput("c"))

	require.NoError(t, s.Delete(ctx, a.ID))

	active, ok, err := s.Active(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, b.ID, active.ID)

	list, _ := s.List(ctx)
	assert.Len(t, list, 2)
}

func TestStore_DeleteInactiveKeepsActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	a, _ := s.Create(ctx, sampleInput("a"))
	b, _ := s.Create(ctx, sampleInput("b"))

	require.NoError(t, s.Delete(ctx, b.ID))
	active, ok, _ := s.Active(ctx)
	require.True(t, ok)
	assert.Equal(t, a.ID, active.ID)
}

func TestStore_DeleteLastLeavesNoActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	a, _ := s.Create(ctx, sampleInput("a"))
	require.NoError(t, s.Delete(ctx, a.ID))

	_, ok, err := s.Active(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SetActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	a, _ := s.Create(ctx, sampleInput("a"))
	b, _ := s.Create(ctx, sampleInput("b"))

	got, err := s.SetActive(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	old, _ := s.Get(ctx, a.ID)
	assert.False(t, old.IsActive)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	a, _ := s.Create(ctx, sampleInput("a"))
	name := "renamed"
	token := "tok"

	got, err := s.Update(ctx, a.ID, UpdateInput{Name: &name, SessionToken: &token})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, "tok", got.SessionToken.Unmask())
	assert.Equal(t, "AKIAa", got.AccessKeyID)
	assert.Equal(t, "secret-a", got.SecretAccessKey.Unmask())
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	_, err := s.Get(ctx, "missing")
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundProfile, appErr.Code)

	assert.Error(t, s.Delete(ctx, "missing"))
	_, err = s.SetActive(ctx, "missing")
	assert.Error(t, err)
	_, err = s.Update(ctx, "missing", UpdateInput{})
	assert.Error(t, err)
	_, err = s.RecordValidation(ctx, "missing", true, time.Now())
	assert.Error(t, err)
}

func TestStore_RecordValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	a, _ := s.Create(ctx, sampleInput("a"))
	at := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)

	got, err := s.RecordValidation(ctx, a.ID, false, at)
	require.NoError(t, err)
	require.NotNil(t, got.IsValid)
	assert.False(t, *got.IsValid)
	require.NotNil(t, got.LastValidated)
	assert.Equal(t, at, *got.LastValidated)
}

func TestStore_SaveFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	s := newTestStore(t, backend)

	a, err := s.Create(ctx, sampleInput("a"))
	require.NoError(t, err)

	backend.saveErr = errors.New("disk full")
	_, err = s.Create(ctx, sampleInput("b"))
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalStorage, appErr.Code)

	require.Error(t, s.Delete(ctx, a.ID))
	list, _ := s.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestStore_FileBackendPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profiles.json")

	backend, err := NewFileBackend(path)
	require.NoError(t, err)
	s := newTestStore(t, backend)

	a, err := s.Create(ctx, CreateInput{
		Name: "prod", AccessKeyID: "AKIAPROD", SecretAccessKey: "s3cr3t", Region: "eu-west-2", SessionToken: "tok",
	})
	require.NoError(t, err)
	_, err = s.RecordValidation(ctx, a.ID, true, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	reopened, err := NewFileBackend(path)
	require.NoError(t, err)
	s2, err := NewStore(ctx, reopened, nil)
	require.NoError(t, err)

	got, err := s2.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "prod", got.Name)
	assert.Equal(t, "s3cr3t", got.SecretAccessKey.Unmask())
	assert.Equal(t, "tok", got.SessionToken.Unmask())
	assert.True(t, got.IsActive)
	require.NotNil(t, got.IsValid)
	assert.True(t, *got.IsValid)
}

func TestProfile_Credentials(t *testing.T) {
	p := Profile{AccessKeyID: "a", SecretAccessKey: "s", Region: "r", SessionToken: "t"}
	c := p.Credentials()
	assert.True(t, c.Complete())
	assert.Equal(t, "t", c.SessionToken.Unmask())
}

func TestStore_CredentialResolution(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend())

	_, ok, err := s.ActiveCredentials(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := s.Create(ctx, sampleInput("one"))
	require.NoError(t, err)
	second, err := s.Create(ctx, sampleInput("two"))
	require.NoError(t, err)

	creds, ok, err := s.ActiveCredentials(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.AccessKeyID, creds.AccessKeyID)

	creds, err = s.ProfileCredentials(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "AKIAtwo", creds.AccessKeyID)
	assert.Equal(t, "secret-two", creds.SecretAccessKey.Unmask())

	_, err = s.ProfileCredentials(ctx, "missing")
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundProfile, appErr.Code)
}
