package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"eventping/internal/channel"
	"eventping/internal/db"
	"eventping/internal/plan"
)

type spyNotifier struct {
	calls  int
	result channel.Result
}

func (s *spyNotifier) Send(context.Context, string, channel.EventData) channel.Result {
	s.calls++
	return s.result
}

func (s *spyNotifier) SendText(context.Context, string, string) channel.Result {
	s.calls++
	return s.result
}

type fakeStore struct {
	statuses map[uint]db.DeliveryStatus
	reasons  map[uint]string
	sets     map[uint]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		statuses: map[uint]db.DeliveryStatus{},
		reasons:  map[uint]string{},
		sets:     map[uint]int{},
	}
}

func (f *fakeStore) SetEventStatus(eventID uint, status db.DeliveryStatus, reason string) error {
	if _, done := f.statuses[eventID]; done {
		return fmt.Errorf("event %d already finalized", eventID)
	}
	f.statuses[eventID] = status
	f.reasons[eventID] = reason
	f.sets[eventID]++
	return nil
}

type fakeLedger struct {
	recorded int
}

func (f *fakeLedger) Record(*db.User) error {
	f.recorded++
	return nil
}

func testUser() *db.User {
	u := &db.User{ID: 1, Plan: plan.Free, ActiveChannel: db.ChannelDiscord}
	u.MarkChannelVerified(db.ChannelDiscord, "dest-1", time.Now())
	return u
}

func testDispatcher(spy *spyNotifier) (*Dispatcher, *fakeStore, *fakeLedger) {
	reg := channel.NewRegistryWith(map[db.Channel]channel.Notifier{
		db.ChannelDiscord: spy,
	})
	store := newFakeStore()
	ledger := &fakeLedger{}
	return New(reg, store, ledger, time.Second), store, ledger
}

func TestDispatch_SuccessMarksDeliveredAndRecordsQuota(t *testing.T) {
	spy := &spyNotifier{result: channel.Result{Success: true}}
	d, store, ledger := testDispatcher(spy)
	event := &db.Event{ID: 7, PublicID: "ev-7", Channel: db.ChannelDiscord}

	res := d.Dispatch(context.Background(), testUser(), event, channel.EventData{Title: "t"})
	if !res.Success {
		t.Fatalf("Dispatch failed: %s", res.Message)
	}
	if spy.calls != 1 {
		t.Fatalf("adapter calls = %d, want 1", spy.calls)
	}
	if store.statuses[7] != db.StatusDelivered {
		t.Fatalf("status = %s, want DELIVERED", store.statuses[7])
	}
	if ledger.recorded != 1 {
		t.Fatalf("quota recorded = %d, want 1", ledger.recorded)
	}
}

func TestDispatch_FailureMarksFailedAndSkipsQuota(t *testing.T) {
	spy := &spyNotifier{result: channel.Result{Success: false, Message: "status 500"}}
	d, store, ledger := testDispatcher(spy)
	event := &db.Event{ID: 7, PublicID: "ev-7", Channel: db.ChannelDiscord}

	res := d.Dispatch(context.Background(), testUser(), event, channel.EventData{Title: "t"})
	if res.Success {
		t.Fatal("Dispatch succeeded, want failure")
	}
	if store.statuses[7] != db.StatusFailed {
		t.Fatalf("status = %s, want FAILED", store.statuses[7])
	}
	if store.reasons[7] != "status 500" {
		t.Fatalf("reason = %q", store.reasons[7])
	}
	if ledger.recorded != 0 {
		t.Fatalf("quota recorded = %d, want 0", ledger.recorded)
	}
}

func TestDispatch_StatusSetExactlyOnce(t *testing.T) {
	spy := &spyNotifier{result: channel.Result{Success: true}}
	d, store, _ := testDispatcher(spy)
	event := &db.Event{ID: 7, PublicID: "ev-7", Channel: db.ChannelDiscord}

	d.Dispatch(context.Background(), testUser(), event, channel.EventData{})
	if store.sets[7] != 1 {
		t.Fatalf("status writes = %d, want 1", store.sets[7])
	}
}

func TestDispatch_MisconfiguredTenantFailsWithoutSend(t *testing.T) {
	spy := &spyNotifier{result: channel.Result{Success: true}}
	d, store, ledger := testDispatcher(spy)
	u := &db.User{ID: 1, ActiveChannel: db.ChannelNone}
	event := &db.Event{ID: 9, PublicID: "ev-9"}

	res := d.Dispatch(context.Background(), u, event, channel.EventData{})
	if res.Success {
		t.Fatal("Dispatch succeeded for unconfigured tenant")
	}
	if spy.calls != 0 {
		t.Fatalf("adapter calls = %d, want 0", spy.calls)
	}
	if store.statuses[9] != db.StatusFailed {
		t.Fatalf("status = %s, want FAILED", store.statuses[9])
	}
	if ledger.recorded != 0 {
		t.Fatalf("quota recorded = %d, want 0", ledger.recorded)
	}
}

func TestValidateChannel(t *testing.T) {
	spy := &spyNotifier{result: channel.Result{Success: true}}
	d, _, _ := testDispatcher(spy)

	if err := d.ValidateChannel(testUser()); err != nil {
		t.Fatalf("ValidateChannel on configured tenant: %v", err)
	}
	if err := d.ValidateChannel(&db.User{ActiveChannel: db.ChannelNone}); err == nil {
		t.Fatal("ValidateChannel passed for unconfigured tenant")
	}
	if spy.calls != 0 {
		t.Fatalf("validation must not send; calls = %d", spy.calls)
	}
}
