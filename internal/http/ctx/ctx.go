package ctx

import (
	"github.com/valyala/fasthttp"

	dbpkg "eventping/internal/db"
)

const userKey = "user"

// SetUser stashes the authenticated tenant on the request.
func SetUser(ctx *fasthttp.RequestCtx, user *dbpkg.User) {
	ctx.SetUserValue(userKey, user)
}

// UserFromCtx returns the authenticated tenant, if any.
func UserFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	v := ctx.UserValue(userKey)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*dbpkg.User)
	return u, ok && u != nil
}
