package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/proofile/authcore/internal/auth/counter"
	"github.com/proofile/authcore/internal/auth/domain"
	"github.com/proofile/authcore/internal/auth/store"
	"github.com/proofile/authcore/pkg/cryptox"
	"github.com/proofile/authcore/pkg/jwtx"
)

// fakeUsers is an in-memory store.Users with call counters, so tests can
// assert how many lookups a code path performed.
type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]domain.User
	byID    map[string]domain.User

	getByIDCalls    atomic.Int64
	getByEmailCalls atomic.Int64

	// err, when set, is returned by every method.
	err error
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{
		byEmail: make(map[string]domain.User),
		byID:    make(map[string]domain.User),
	}
	for _, u := range users {
		f.byEmail[u.Email] = u
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	f.getByEmailCalls.Add(1)
	if f.err != nil {
		return domain.User{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (domain.User, error) {
	f.getByIDCalls.Add(1)
	if f.err != nil {
		return domain.User{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) CreateUser(_ context.Context, u domain.User) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[u.Email]; ok {
		return store.ErrAlreadyExists
	}
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) SetUserActive(_ context.Context, userID string, active bool) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.Active = active
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, userID string, newHash string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = newHash
	f.byID[userID] = u
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUsers) IsEmpty(_ context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID) == 0, nil
}

// erroringCounterStore fails every operation, for fail-open/fail-closed tests.
type erroringCounterStore struct{}

var errCounterDown = errors.New("counter store unreachable")

func (erroringCounterStore) IncrementWithTTL(context.Context, string, time.Duration) (int64, error) {
	return 0, errCounterDown
}

func (erroringCounterStore) Get(context.Context, string) (int64, error) {
	return 0, errCounterDown
}

func (erroringCounterStore) Delete(context.Context, string) error {
	return errCounterDown
}

func (erroringCounterStore) SlideWindow(context.Context, string, time.Time, time.Duration) (counter.WindowStat, error) {
	return counter.WindowStat{}, errCounterDown
}

func newTestTokenService(t *testing.T, users store.Users) *TokenService {
	t.Helper()
	codec, err := jwtx.NewCodec([]byte("test-signing-secret-0123456789"), "authcore-test")
	require.NoError(t, err)
	return &TokenService{
		Codec:      codec,
		Users:      users,
		AccessTTL:  jwtx.DefaultAccessTTL,
		RefreshTTL: jwtx.DefaultRefreshTTL,
	}
}

func testUser(t *testing.T, id, email, password string, active bool) domain.User {
	t.Helper()
	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)
	return domain.User{
		ID:           id,
		Email:        email,
		FullName:     "Test User",
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Active:       active,
	}
}
