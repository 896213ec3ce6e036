package handlers

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	dbpkg "eventping/internal/db"
)

// UserStore persists tenant configuration changes. Implemented by
// db.Store.
type UserStore interface {
	SaveUser(u *dbpkg.User) error
}

type channelRequest struct {
	Channel    string `json:"channel"`
	Identifier string `json:"identifier,omitempty"`
}

// SetChannelIdentifier handles POST /v1/channels: record (or clear)
// the tenant's destination identifier for a channel. Changing an
// identifier clears its verification, and clearing the identifier of
// the active channel deactivates it.
func SetChannelIdentifier(store UserStore) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		var req channelRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "invalid request body")
			return
		}

		ch, known := dbpkg.ParseChannel(req.Channel)
		if !known {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "unknown channel")
			return
		}

		user.SetDestination(ch, req.Identifier)
		if req.Identifier == "" && user.ActiveChannel == ch {
			user.ActiveChannel = dbpkg.ChannelNone
		}

		if err := store.SaveUser(user); err != nil {
			respondError(ctx, fasthttp.StatusInternalServerError, "failed to save channel configuration")
			return
		}

		respondJSON(ctx, fasthttp.StatusOK, map[string]any{"message": "channel identifier updated"})
	}
}

// ActivateChannel handles POST /v1/channels/activate: select the
// channel live deliveries go to. Activation requires the identifier to
// be present and verified; "NONE" deactivates.
func ActivateChannel(store UserStore) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		var req channelRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "invalid request body")
			return
		}

		if req.Channel == string(dbpkg.ChannelNone) {
			user.ActiveChannel = dbpkg.ChannelNone
			if err := store.SaveUser(user); err != nil {
				respondError(ctx, fasthttp.StatusInternalServerError, "failed to save channel configuration")
				return
			}
			respondJSON(ctx, fasthttp.StatusOK, map[string]any{"message": "channel deactivated"})
			return
		}

		ch, known := dbpkg.ParseChannel(req.Channel)
		if !known {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "unknown channel")
			return
		}
		if user.Destination(ch) == "" {
			respondError(ctx, fasthttp.StatusForbidden, "missing identifier for "+string(ch))
			return
		}
		if user.ChannelVerifiedAt(ch) == nil {
			respondError(ctx, fasthttp.StatusForbidden, string(ch)+" identifier must be verified before activation")
			return
		}

		user.ActiveChannel = ch
		if err := store.SaveUser(user); err != nil {
			respondError(ctx, fasthttp.StatusInternalServerError, "failed to save channel configuration")
			return
		}

		respondJSON(ctx, fasthttp.StatusOK, map[string]any{"message": "channel activated"})
	}
}
