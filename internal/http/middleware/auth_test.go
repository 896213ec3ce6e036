package middleware

import (
	"testing"

	"github.com/valyala/fasthttp"

	"eventping/internal/auth"
	dbpkg "eventping/internal/db"
	httpctx "eventping/internal/http/ctx"
)

type fakeResolver struct {
	key  string
	user *dbpkg.User
}

func (f *fakeResolver) Resolve(apiKey string) (*dbpkg.User, error) {
	if apiKey == f.key {
		return f.user, nil
	}
	return nil, auth.ErrInvalidCredential
}

func doAuth(t *testing.T, authHeader string) (*fasthttp.RequestCtx, bool) {
	t.Helper()
	resolver := &fakeResolver{key: "good-key", user: &dbpkg.User{ID: 42}}

	var reached bool
	h := BearerAuth(resolver)(func(ctx *fasthttp.RequestCtx) {
		reached = true
		u, ok := httpctx.UserFromCtx(ctx)
		if !ok || u.ID != 42 {
			t.Errorf("handler saw user %+v", u)
		}
	})

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetRequestURI("/v1/events")
	if authHeader != "" {
		ctx.Request.Header.Set("Authorization", authHeader)
	}
	h(ctx)
	return ctx, reached
}

func TestBearerAuth_ValidKey(t *testing.T) {
	ctx, reached := doAuth(t, "Bearer good-key")
	if !reached {
		t.Fatalf("handler not reached, status = %d", ctx.Response.StatusCode())
	}
}

func TestBearerAuth_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic good-key"},
		{"empty token", "Bearer   "},
		{"unknown key", "Bearer bad-key"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx, reached := doAuth(t, c.header)
			if reached {
				t.Fatal("handler reached")
			}
			if ctx.Response.StatusCode() != fasthttp.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", ctx.Response.StatusCode())
			}
		})
	}
}
