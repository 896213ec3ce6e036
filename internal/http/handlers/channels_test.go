package handlers

import (
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	dbpkg "eventping/internal/db"
)

type fakeUserStore struct {
	saves int
}

func (f *fakeUserStore) SaveUser(*dbpkg.User) error {
	f.saves++
	return nil
}

func TestSetChannelIdentifier_ClearsVerification(t *testing.T) {
	store := &fakeUserStore{}
	user := &dbpkg.User{ID: 1}
	user.MarkChannelVerified(dbpkg.ChannelSlack, "U111", time.Now())

	ctx := postJSON(SetChannelIdentifier(store), user, `{"channel":"SLACK","identifier":"U222"}`)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	if user.SlackID != "U222" {
		t.Fatalf("SlackID = %q, want U222", user.SlackID)
	}
	if user.SlackVerifiedAt != nil {
		t.Fatal("changing the identifier must clear its verification")
	}
	if store.saves != 1 {
		t.Fatalf("saves = %d, want 1", store.saves)
	}
}

func TestSetChannelIdentifier_ClearingActiveChannelDeactivates(t *testing.T) {
	store := &fakeUserStore{}
	user := &dbpkg.User{ID: 1, ActiveChannel: dbpkg.ChannelSlack}
	user.MarkChannelVerified(dbpkg.ChannelSlack, "U111", time.Now())

	ctx := postJSON(SetChannelIdentifier(store), user, `{"channel":"SLACK","identifier":""}`)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	if user.ActiveChannel != dbpkg.ChannelNone {
		t.Fatalf("ActiveChannel = %s, want NONE", user.ActiveChannel)
	}
}

func TestSetChannelIdentifier_RejectsUnknownChannel(t *testing.T) {
	store := &fakeUserStore{}
	user := &dbpkg.User{ID: 1}

	ctx := postJSON(SetChannelIdentifier(store), user, `{"channel":"PAGER","identifier":"x"}`)
	if ctx.Response.StatusCode() != fasthttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", ctx.Response.StatusCode())
	}
	if store.saves != 0 {
		t.Fatalf("saves = %d, want 0", store.saves)
	}
}

func TestActivateChannel_RequiresVerifiedIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		user       func() *dbpkg.User
		wantStatus int
		wantActive dbpkg.Channel
	}{
		{
			name: "verified identifier activates",
			user: func() *dbpkg.User {
				u := &dbpkg.User{ID: 1}
				u.MarkChannelVerified(dbpkg.ChannelDiscord, "12345", time.Now())
				return u
			},
			wantStatus: fasthttp.StatusOK,
			wantActive: dbpkg.ChannelDiscord,
		},
		{
			name: "missing identifier is refused",
			user: func() *dbpkg.User {
				return &dbpkg.User{ID: 1}
			},
			wantStatus: fasthttp.StatusForbidden,
			wantActive: dbpkg.ChannelNone,
		},
		{
			name: "unverified identifier is refused",
			user: func() *dbpkg.User {
				u := &dbpkg.User{ID: 1}
				u.SetDestination(dbpkg.ChannelDiscord, "12345")
				return u
			},
			wantStatus: fasthttp.StatusForbidden,
			wantActive: dbpkg.ChannelNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUserStore{}
			user := tt.user()

			ctx := postJSON(ActivateChannel(store), user, `{"channel":"DISCORD"}`)
			if ctx.Response.StatusCode() != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", ctx.Response.StatusCode(), tt.wantStatus, ctx.Response.Body())
			}
			if user.ActiveChannel != tt.wantActive {
				t.Fatalf("ActiveChannel = %s, want %s", user.ActiveChannel, tt.wantActive)
			}
		})
	}
}

func TestActivateChannel_NoneDeactivates(t *testing.T) {
	store := &fakeUserStore{}
	user := &dbpkg.User{ID: 1, ActiveChannel: dbpkg.ChannelSlack}
	user.MarkChannelVerified(dbpkg.ChannelSlack, "U111", time.Now())

	ctx := postJSON(ActivateChannel(store), user, `{"channel":"NONE"}`)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d: %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	if user.ActiveChannel != dbpkg.ChannelNone {
		t.Fatalf("ActiveChannel = %s, want NONE", user.ActiveChannel)
	}
	if user.SlackVerifiedAt == nil {
		t.Fatal("deactivation must not clear verification")
	}
}
