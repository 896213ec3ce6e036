// Package verify implements the proof-of-control handshake that binds
// a destination identifier to a tenant before its channel can be
// activated: issue a one-time code out of band, then redeem it.
package verify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"eventping/internal/channel"
	"eventping/internal/db"
)

var (
	// ErrIdentifierTaken means another tenant already verified this
	// identifier for the channel.
	ErrIdentifierTaken = errors.New("identifier already verified by another account")
	// ErrInvalidCode means no live token matches the submitted code.
	ErrInvalidCode = errors.New("invalid code")
	// ErrCodeMismatch means the code exists but was issued for a
	// different identifier.
	ErrCodeMismatch = errors.New("code does not match this identifier")
	// ErrCodeExpired means the code is past its 10-minute window.
	ErrCodeExpired = errors.New("code expired")
	// ErrDeliveryFailed means the code could not be sent to the
	// identifier.
	ErrDeliveryFailed = errors.New("could not deliver verification code")
)

// Store is the persistence surface the verifier needs. Implemented by
// db.Store; tests install in-memory fakes.
type Store interface {
	SaveUser(u *db.User) error
	CreateToken(t *db.VerificationToken) error
	TokenByCode(ch db.Channel, code string) (*db.VerificationToken, error)
	DeleteToken(id uint) error
	VerifiedIdentifierInUse(ch db.Channel, identifier string, excludeUserID uint) (bool, error)
}

// Adapters resolves the notifier used to deliver codes. Implemented by
// channel.Registry.
type Adapters interface {
	ByChannel(ch db.Channel) (channel.Notifier, bool)
}

// Service issues and redeems verification codes.
type Service struct {
	store    Store
	adapters Adapters
	timeout  time.Duration
	now      func() time.Time
	newCode  func() (string, error)
}

func NewService(store Store, adapters Adapters, timeout time.Duration) *Service {
	return &Service{
		store:    store,
		adapters: adapters,
		timeout:  timeout,
		now:      time.Now,
		newCode:  newNumericCode,
	}
}

// NewServiceAt pins the clock and code generator. Used by tests.
func NewServiceAt(store Store, adapters Adapters, timeout time.Duration, now func() time.Time, newCode func() (string, error)) *Service {
	return &Service{store: store, adapters: adapters, timeout: timeout, now: now, newCode: newCode}
}

// Issue generates a one-time code bound to the identifier, stores it
// with a 10-minute expiry, and delivers it over the channel being
// verified. Code delivery is the one send allowed to an unverified
// identifier.
func (s *Service) Issue(ctx context.Context, u *db.User, ch db.Channel, identifier string) error {
	if identifier == "" {
		return fmt.Errorf("%w: empty identifier", ErrDeliveryFailed)
	}

	taken, err := s.store.VerifiedIdentifierInUse(ch, identifier, u.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrIdentifierTaken
	}

	notifier, known := s.adapters.ByChannel(ch)
	if !known {
		return fmt.Errorf("%w: unknown channel %s", ErrDeliveryFailed, ch)
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}

	token := &db.VerificationToken{
		UserID:     u.ID,
		Channel:    ch,
		Code:       code,
		Identifier: identifier,
		ExpiresAt:  s.now().Add(db.TokenTTL),
	}
	if err := s.store.CreateToken(token); err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text := fmt.Sprintf("Your eventping verification code is %s. It expires in 10 minutes.", code)
	if res := notifier.SendText(sendCtx, identifier, text); !res.Success {
		// The undelivered token is left to the expiry sweep.
		return fmt.Errorf("%w: %s", ErrDeliveryFailed, res.Message)
	}
	return nil
}

// Redeem consumes a code. On success the identifier is bound to the
// tenant, the channel is stamped verified, and the token is deleted so
// a second redemption fails with ErrInvalidCode. Mismatch and expiry
// leave tenant state untouched.
func (s *Service) Redeem(u *db.User, ch db.Channel, code, identifier string) error {
	token, err := s.store.TokenByCode(ch, code)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	if token.UserID != u.ID {
		return ErrInvalidCode
	}
	if token.Identifier != identifier {
		return ErrCodeMismatch
	}
	if token.Expired(s.now()) {
		return ErrCodeExpired
	}

	u.MarkChannelVerified(ch, identifier, s.now())
	if err := s.store.SaveUser(u); err != nil {
		return err
	}
	return s.store.DeleteToken(token.ID)
}

// newNumericCode returns a 6-digit code with leading zeros preserved.
func newNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
