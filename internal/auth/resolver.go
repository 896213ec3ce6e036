// Package auth resolves presented API keys to tenants.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"eventping/internal/db"
)

// ErrInvalidCredential means no tenant's key hash matches the
// presented key.
var ErrInvalidCredential = errors.New("invalid API key")

// Store is the persistence surface the resolver needs.
type Store interface {
	UsersWithCredentials() ([]db.User, error)
}

// CredentialResolver maps a plaintext API key onto its tenant. The
// interface exists so the linear-scan implementation below can be
// swapped for an indexed lookup without touching the dispatcher.
type CredentialResolver interface {
	Resolve(apiKey string) (*db.User, error)
}

// BcryptResolver compares the presented key against every stored hash.
// The scan does not stop at the first match, so the work done is the
// same whichever tenant the key belongs to. O(tenants) bcrypt
// comparisons per request is a known scaling limitation.
type BcryptResolver struct {
	store Store
}

func NewBcryptResolver(store Store) *BcryptResolver {
	return &BcryptResolver{store: store}
}

func (r *BcryptResolver) Resolve(apiKey string) (*db.User, error) {
	users, err := r.store.UsersWithCredentials()
	if err != nil {
		return nil, err
	}

	var matched *db.User
	for i := range users {
		if bcrypt.CompareHashAndPassword([]byte(users[i].APIKeyHash), []byte(apiKey)) == nil {
			matched = &users[i]
		}
	}
	if matched == nil {
		return nil, ErrInvalidCredential
	}
	return matched, nil
}
