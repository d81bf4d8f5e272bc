package profile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geodrop-app/geodrop/backend/internal/models"
)

type fakeProfileStore struct {
	mu       sync.Mutex
	rows     map[string]models.UserProfile
	failGets bool
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{rows: make(map[string]models.UserProfile)}
}

func (f *fakeProfileStore) GetProfile(_ context.Context, id string) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGets {
		return nil, errors.New("postgres down")
	}
	p, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProfileStore) SaveProfile(_ context.Context, profile *models.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.rows[profile.ID]
	saved := *profile
	if ok {
		saved.Reputation = existing.Reputation
	}
	f.rows[profile.ID] = saved
	return nil
}

func (f *fakeProfileStore) AddReputation(_ context.Context, id string, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.rows[id]
	p.ID = id
	p.Reputation += points
	f.rows[id] = p
	return nil
}

type memLocal struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemLocal() *memLocal {
	return &memLocal{data: make(map[string][]byte)}
}

func (m *memLocal) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memLocal) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func TestRefreshInitializesMissingProfile(t *testing.T) {
	store := newFakeProfileStore()
	svc := NewService(store, newMemLocal())

	p, err := svc.Refresh(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.ID)
	assert.Equal(t, "Freshman", p.RankTitle())

	remote, err := store.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, remote, "missing remote row is initialized")
}

func TestRefreshServesCachedCopyWhenRemoteFails(t *testing.T) {
	store := newFakeProfileStore()
	local := newMemLocal()
	svc := NewService(store, local)

	require.NoError(t, svc.Update(context.Background(), &models.UserProfile{
		ID:     "user-1",
		Name:   "Ada",
		Handle: "ada",
	}))

	store.failGets = true

	// A fresh service over the same local store simulates a restart with
	// the remote unreachable.
	restarted := NewService(store, local)
	p, err := restarted.Refresh(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Name)
}

func TestRefreshFailsWithoutCache(t *testing.T) {
	store := newFakeProfileStore()
	store.failGets = true
	svc := NewService(store, newMemLocal())

	_, err := svc.Refresh(context.Background(), "user-1")
	assert.Error(t, err)
}

func TestAwardReputationUpdatesCacheAndRemote(t *testing.T) {
	store := newFakeProfileStore()
	svc := NewService(store, newMemLocal())

	_, err := svc.Refresh(context.Background(), "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.AwardReputation(context.Background(), "user-1", 10))
	require.NoError(t, svc.AwardReputation(context.Background(), "user-1", 10))

	cached := svc.Current("user-1")
	require.NotNil(t, cached)
	assert.Equal(t, 20, cached.Reputation)

	remote, err := store.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 20, remote.Reputation)
}

func TestCurrentIgnoresCacheOfOtherUser(t *testing.T) {
	store := newFakeProfileStore()
	svc := NewService(store, newMemLocal())

	_, err := svc.Refresh(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Nil(t, svc.Current("user-2"))
}
