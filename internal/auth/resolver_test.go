package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"eventping/internal/db"
)

type fakeStore struct {
	users []db.User
	err   error
}

func (f *fakeStore) UsersWithCredentials() ([]db.User, error) {
	return f.users, f.err
}

func hashKey(t *testing.T, key string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func TestResolve_MatchesTenantByHash(t *testing.T) {
	store := &fakeStore{users: []db.User{
		{ID: 1, APIKeyHash: hashKey(t, "key-one")},
		{ID: 2, APIKeyHash: hashKey(t, "key-two")},
		{ID: 3, APIKeyHash: hashKey(t, "key-three")},
	}}
	r := NewBcryptResolver(store)

	u, err := r.Resolve("key-two")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if u.ID != 2 {
		t.Fatalf("resolved user %d, want 2", u.ID)
	}
}

func TestResolve_UnknownKey(t *testing.T) {
	store := &fakeStore{users: []db.User{
		{ID: 1, APIKeyHash: hashKey(t, "key-one")},
	}}
	r := NewBcryptResolver(store)

	if _, err := r.Resolve("wrong"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
}

func TestResolve_NoTenants(t *testing.T) {
	r := NewBcryptResolver(&fakeStore{})

	if _, err := r.Resolve("anything"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
}
