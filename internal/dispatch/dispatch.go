// Package dispatch orchestrates one delivery attempt: adapter
// selection, the outbound send, the event's terminal status, and quota
// accounting.
package dispatch

import (
	"context"
	"log"
	"time"

	"eventping/internal/channel"
	"eventping/internal/db"
)

// Selector resolves a tenant's configuration to an adapter and
// destination. Implemented by channel.Registry.
type Selector interface {
	Select(u *db.User) (channel.Notifier, string, error)
}

// Store persists delivery outcomes. Implemented by db.Store.
type Store interface {
	// SetEventStatus moves an event out of PENDING exactly once.
	SetEventStatus(eventID uint, status db.DeliveryStatus, reason string) error
}

// Ledger records accepted deliveries. Implemented by quota.Ledger.
type Ledger interface {
	Record(u *db.User) error
}

// Dispatcher drives the DISPATCHING and FINALIZING steps of ingestion.
// The quota gate runs in the handler before the event row exists; the
// dispatcher only ever sees events already persisted as PENDING.
type Dispatcher struct {
	selector Selector
	store    Store
	ledger   Ledger
	timeout  time.Duration
}

func New(selector Selector, store Store, ledger Ledger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{selector: selector, store: store, ledger: ledger, timeout: timeout}
}

// ValidateChannel checks the tenant has a usable channel without
// sending anything. Run before the quota gate so misconfiguration
// fails fast with no side effects.
func (d *Dispatcher) ValidateChannel(u *db.User) error {
	_, _, err := d.selector.Select(u)
	return err
}

// Dispatch delivers the event to the tenant's active channel and
// finalizes the row. On success the event is marked DELIVERED and one
// quota unit is recorded; on failure it is marked FAILED with the
// adapter's message and quota is untouched. The returned Result tells
// the handler which response to send; it is never an error value, so
// the handler always has an explicit signal to act on.
func (d *Dispatcher) Dispatch(ctx context.Context, u *db.User, event *db.Event, data channel.EventData) channel.Result {
	notifier, destination, err := d.selector.Select(u)
	if err != nil {
		// Configuration changed between validation and dispatch.
		res := channel.Result{Success: false, Message: err.Error()}
		d.finalize(u, event, res)
		return res
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	res := notifier.Send(sendCtx, destination, data)
	observeDelivery(u, event.Channel, res, time.Since(start))

	d.finalize(u, event, res)
	return res
}

func (d *Dispatcher) finalize(u *db.User, event *db.Event, res channel.Result) {
	if res.Success {
		if err := d.store.SetEventStatus(event.ID, db.StatusDelivered, ""); err != nil {
			log.Printf("event %s: failed to mark delivered: %v", event.PublicID, err)
		}
		if err := d.ledger.Record(u); err != nil {
			log.Printf("event %s: failed to record quota: %v", event.PublicID, err)
		}
		return
	}
	if err := d.store.SetEventStatus(event.ID, db.StatusFailed, res.Message); err != nil {
		log.Printf("event %s: failed to mark failed: %v", event.PublicID, err)
	}
}
