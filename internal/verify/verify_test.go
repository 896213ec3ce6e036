package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventping/internal/channel"
	"eventping/internal/db"
)

type fakeStore struct {
	users  map[uint]*db.User
	tokens map[string]*db.VerificationToken // keyed by channel/code
	nextID uint
	taken  map[string]bool // channel/identifier verified elsewhere
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  map[uint]*db.User{},
		tokens: map[string]*db.VerificationToken{},
		taken:  map[string]bool{},
	}
}

func tokenKey(ch db.Channel, code string) string { return string(ch) + "/" + code }

func (f *fakeStore) SaveUser(u *db.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeStore) CreateToken(t *db.VerificationToken) error {
	f.nextID++
	t.ID = f.nextID
	f.tokens[tokenKey(t.Channel, t.Code)] = t
	return nil
}

func (f *fakeStore) TokenByCode(ch db.Channel, code string) (*db.VerificationToken, error) {
	t, ok := f.tokens[tokenKey(ch, code)]
	if !ok {
		return nil, db.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) DeleteToken(id uint) error {
	for k, t := range f.tokens {
		if t.ID == id {
			delete(f.tokens, k)
		}
	}
	return nil
}

func (f *fakeStore) VerifiedIdentifierInUse(ch db.Channel, identifier string, _ uint) (bool, error) {
	return f.taken[string(ch)+"/"+identifier], nil
}

type recordingNotifier struct {
	texts   []string
	dests   []string
	failing bool
}

func (r *recordingNotifier) Send(context.Context, string, channel.EventData) channel.Result {
	return channel.Result{Success: true}
}

func (r *recordingNotifier) SendText(_ context.Context, dest, text string) channel.Result {
	r.dests = append(r.dests, dest)
	r.texts = append(r.texts, text)
	if r.failing {
		return channel.Result{Success: false, Message: "provider down"}
	}
	return channel.Result{Success: true}
}

type fakeAdapters struct {
	notifier channel.Notifier
}

func (f *fakeAdapters) ByChannel(db.Channel) (channel.Notifier, bool) {
	return f.notifier, true
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
}

func testService(store *fakeStore, notifier channel.Notifier) *Service {
	return NewServiceAt(store, &fakeAdapters{notifier: notifier}, time.Second,
		fixedNow, func() (string, error) { return "123456", nil })
}

func TestVerification_RoundTrip(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := testService(store, notifier)
	u := &db.User{ID: 1}

	if err := svc.Issue(context.Background(), u, db.ChannelSlack, "U999"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(notifier.texts) != 1 || notifier.dests[0] != "U999" {
		t.Fatalf("code not delivered to identifier: %+v", notifier.dests)
	}

	if err := svc.Redeem(u, db.ChannelSlack, "123456", "U999"); err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if u.SlackID != "U999" {
		t.Fatalf("SlackID = %q, want U999", u.SlackID)
	}
	if u.SlackVerifiedAt == nil || !u.SlackVerifiedAt.Equal(fixedNow()) {
		t.Fatalf("SlackVerifiedAt = %v", u.SlackVerifiedAt)
	}

	// Token is single-use.
	if err := svc.Redeem(u, db.ChannelSlack, "123456", "U999"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("second redemption err = %v, want ErrInvalidCode", err)
	}
}

func TestVerification_IdentifierMismatch(t *testing.T) {
	store := newFakeStore()
	svc := testService(store, &recordingNotifier{})
	u := &db.User{ID: 1}

	if err := svc.Issue(context.Background(), u, db.ChannelSlack, "U999"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := svc.Redeem(u, db.ChannelSlack, "123456", "U000"); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("err = %v, want ErrCodeMismatch", err)
	}
	if u.SlackID != "" || u.SlackVerifiedAt != nil {
		t.Fatal("mismatch mutated tenant state")
	}
}

func TestVerification_Expiry(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := testService(store, notifier)
	u := &db.User{ID: 1}

	if err := svc.Issue(context.Background(), u, db.ChannelWebex, "p@example.com"); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	late := NewServiceAt(store, &fakeAdapters{notifier: notifier}, time.Second,
		func() time.Time { return fixedNow().Add(db.TokenTTL + time.Second) },
		func() (string, error) { return "123456", nil })

	if err := late.Redeem(u, db.ChannelWebex, "123456", "p@example.com"); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("err = %v, want ErrCodeExpired", err)
	}
	if u.WebexVerifiedAt != nil {
		t.Fatal("expired redemption mutated tenant state")
	}
}

func TestVerification_IdentifierTakenByAnotherTenant(t *testing.T) {
	store := newFakeStore()
	store.taken["SLACK/U999"] = true
	svc := testService(store, &recordingNotifier{})

	err := svc.Issue(context.Background(), &db.User{ID: 2}, db.ChannelSlack, "U999")
	if !errors.Is(err, ErrIdentifierTaken) {
		t.Fatalf("err = %v, want ErrIdentifierTaken", err)
	}
}

func TestVerification_DeliveryFailure(t *testing.T) {
	store := newFakeStore()
	svc := testService(store, &recordingNotifier{failing: true})

	err := svc.Issue(context.Background(), &db.User{ID: 1}, db.ChannelSlack, "U999")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("err = %v, want ErrDeliveryFailed", err)
	}
}

func TestVerification_WrongTenantCode(t *testing.T) {
	store := newFakeStore()
	svc := testService(store, &recordingNotifier{})
	owner := &db.User{ID: 1}

	if err := svc.Issue(context.Background(), owner, db.ChannelSlack, "U999"); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := &db.User{ID: 2}
	if err := svc.Redeem(other, db.ChannelSlack, "123456", "U999"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode", err)
	}
}
