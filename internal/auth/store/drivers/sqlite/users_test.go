package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proofile/authcore/internal/auth/domain"
	"github.com/proofile/authcore/internal/auth/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "authcore_test.db")
	s, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(id, email string) domain.User {
	return domain.User{
		ID:           id,
		Email:        email,
		FullName:     "Test User",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		Role:         domain.RoleUser,
		Active:       true,
	}
}

func TestUsers_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	u := seedUser("01JBUSER0001", "alice@example.com")
	require.NoError(t, users.CreateUser(ctx, u))

	byEmail, err := users.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)
	require.Equal(t, u.Email, byEmail.Email)
	require.Equal(t, u.FullName, byEmail.FullName)
	require.Equal(t, u.PasswordHash, byEmail.PasswordHash)
	require.Equal(t, u.Role, byEmail.Role)
	require.True(t, byEmail.Active)
	require.False(t, byEmail.CreatedAt.IsZero())
	require.False(t, byEmail.UpdatedAt.IsZero())

	byID, err := users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, byID.Email)
}

func TestUsers_GetMissing(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	_, err := users.GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = users.GetUserByID(ctx, "missing-id")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	require.NoError(t, users.CreateUser(ctx, seedUser("01JBUSER0001", "alice@example.com")))

	err := users.CreateUser(ctx, seedUser("01JBUSER0002", "alice@example.com"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsers_SetUserActive(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	u := seedUser("01JBUSER0001", "alice@example.com")
	require.NoError(t, users.CreateUser(ctx, u))

	require.NoError(t, users.SetUserActive(ctx, u.ID, false))

	got, err := users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.Active)

	require.ErrorIs(t, users.SetUserActive(ctx, "missing-id", false), store.ErrNotFound)
}

func TestUsers_UpdatePasswordHash(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	u := seedUser("01JBUSER0001", "alice@example.com")
	require.NoError(t, users.CreateUser(ctx, u))

	const newHash = "$argon2id$v=19$m=65536,t=3,p=2$bmV3c2FsdG5ld3NhbHRuZXc$bmV3aGFzaG5ld2hhc2huZXdoYXNobmV3aGFzaG5ldw"
	require.NoError(t, users.UpdatePasswordHash(ctx, u.ID, newHash))

	got, err := users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, newHash, got.PasswordHash)

	require.ErrorIs(t, users.UpdatePasswordHash(ctx, "missing-id", newHash), store.ErrNotFound)
}

func TestUsers_IsEmpty(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	empty, err := users.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	require.NoError(t, users.CreateUser(ctx, seedUser("01JBUSER0001", "alice@example.com")))

	empty, err = users.IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)
}

func TestUsers_RoleConstraint(t *testing.T) {
	ctx := context.Background()
	users := newTestStore(t).Users()

	u := seedUser("01JBUSER0001", "alice@example.com")
	u.Role = "superuser"

	require.Error(t, users.CreateUser(ctx, u))
}
