// Package quota gates event ingestion against per-plan monthly limits.
package quota

import (
	"errors"
	"time"

	"eventping/internal/db"
)

// ErrExceeded signals the tenant is at or over its monthly limit.
// Callers map it to a 429 and must not attempt delivery.
var ErrExceeded = errors.New("monthly event quota exceeded")

// Store is the persistence surface the ledger needs. Implemented by
// db.Store; tests install in-memory fakes.
type Store interface {
	// QuotaCount returns the tenant's count for the billing period
	// containing now. A missing row counts as zero.
	QuotaCount(userID uint, now time.Time) (int64, error)
	// IncrementQuota bumps the tenant's counter by one, creating the
	// row at 1 if absent.
	IncrementQuota(userID uint, now time.Time) error
}

// Ledger compares per-tenant counters against plan limits. The check
// and the increment are separate calls around the delivery attempt, so
// concurrent requests can briefly exceed the limit; the cap is a soft
// limit.
type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// NewLedgerAt pins the clock. Used by tests.
func NewLedgerAt(store Store, now func() time.Time) *Ledger {
	return &Ledger{store: store, now: now}
}

// Allow reports whether the tenant may ingest another event this
// period. Returns ErrExceeded at or over the plan limit.
func (l *Ledger) Allow(u *db.User) error {
	count, err := l.store.QuotaCount(u.ID, l.now())
	if err != nil {
		return err
	}
	if count >= u.Plan.MaxEventsPerMonth() {
		return ErrExceeded
	}
	return nil
}

// Record counts one accepted delivery. Called only after the adapter
// confirms delivery; failed dispatches never consume quota.
func (l *Ledger) Record(u *db.User) error {
	return l.store.IncrementQuota(u.ID, l.now())
}
