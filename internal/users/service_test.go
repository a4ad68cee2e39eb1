package users

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memStore struct {
	mu    sync.Mutex
	next  int64
	users map[int64]User
}

func newMemStore() *memStore { return &memStore{users: map[int64]User{}} }

func (m *memStore) Create(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	u.ID = m.next
	u.Role = "customer"
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) ByUsername(_ context.Context, username string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memStore) Taken(_ context.Context, except int64, username, displayName, email string) ([]error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []error
	for id, u := range m.users {
		if id == except {
			continue
		}
		if username != "" && u.Username == username {
			out = append(out, ErrUsernameTaken)
		}
		if displayName != "" && u.DisplayName == displayName {
			out = append(out, ErrDisplayNameTaken)
		}
		if email != "" && u.Email == email {
			out = append(out, ErrEmailTaken)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, id int64, p UserPatch) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	m.users[id] = u
	return u, nil
}

func str(s string) *string { return &s }

func TestService_RegisterAndLogin(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, Registration{Email: "a@example.com", Username: "alice", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.DisplayName)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	cost, err := bcrypt.Cost([]byte(u.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)

	got, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_RegisterConflicts(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{Email: "a@example.com", Username: "alice", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, Registration{Email: "b@example.com", Username: "alice", Password: "pw"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.True(t, IsConflict(err))

	_, err = svc.Register(ctx, Registration{Email: "a@example.com", Username: "bob", Password: "pw"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Register(ctx, Registration{Email: "not-an-email", Username: "carol", Password: "pw"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_Update(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{Email: "a@example.com", Username: "alice", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, Registration{Email: "b@example.com", Username: "bob", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "alice", UserPatch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)

	_, err = svc.Update(ctx, "alice", UserPatch{Username: str("bob"), Email: str("b@example.com")})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, err, ErrEmailTaken)

	// keeping one's own values is not a conflict
	u, err := svc.Update(ctx, "alice", UserPatch{Username: str("alice"), DisplayName: str("Alice L.")})
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", u.DisplayName)
	assert.Equal(t, "a@example.com", u.Email)

	_, err = svc.Update(ctx, "ghost", UserPatch{DisplayName: str("x")})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestService_UpdateTrimsNames(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{Email: "a@example.com", Username: "alice", Password: "pw"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, Registration{Email: "b@example.com", Username: "bob", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "alice", UserPatch{Username: str(" bob ")})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.Update(ctx, "alice", UserPatch{Username: str("   ")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	u, err := svc.Update(ctx, "alice", UserPatch{
		Username:    str(" alice2 "),
		DisplayName: str("  Alice L.  "),
		Email:       str(" a2@example.com "),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)
	assert.Equal(t, "Alice L.", u.DisplayName)
	assert.Equal(t, "a2@example.com", u.Email)

	_, err = svc.Update(ctx, "bob", UserPatch{DisplayName: str(" Alice L. ")})
	assert.ErrorIs(t, err, ErrDisplayNameTaken)
}
