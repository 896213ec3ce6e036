package handlers

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	dbpkg "eventping/internal/db"
	httpctx "eventping/internal/http/ctx"
)

// MustUser returns the authenticated tenant from context, or sends 401
// and returns (nil, false).
func MustUser(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	user, ok := httpctx.UserFromCtx(ctx)
	if !ok {
		respondError(ctx, fasthttp.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return user, true
}

func respondJSON(ctx *fasthttp.RequestCtx, status int, data map[string]any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

func respondError(ctx *fasthttp.RequestCtx, status int, msg string) {
	respondJSON(ctx, status, map[string]any{"message": msg})
}
