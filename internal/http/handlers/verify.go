package handlers

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	dbpkg "eventping/internal/db"
	"eventping/internal/verify"
)

type verifyRequest struct {
	Channel    string `json:"channel"`
	Identifier string `json:"identifier"`
	Code       string `json:"code,omitempty"`
}

// IssueVerification handles POST /v1/channels/verify: send a one-time
// code to the identifier the tenant wants to bind.
func IssueVerification(svc *verify.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		var req verifyRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "invalid request body")
			return
		}
		ch, known := dbpkg.ParseChannel(req.Channel)
		if !known {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "unknown channel")
			return
		}
		if req.Identifier == "" {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "identifier is required")
			return
		}

		if err := svc.Issue(ctx, user, ch, req.Identifier); err != nil {
			switch {
			case errors.Is(err, verify.ErrIdentifierTaken):
				respondJSON(ctx, fasthttp.StatusConflict, verifyResult(false, err.Error()))
			case errors.Is(err, verify.ErrDeliveryFailed):
				respondJSON(ctx, fasthttp.StatusBadGateway, verifyResult(false, err.Error()))
			default:
				respondJSON(ctx, fasthttp.StatusInternalServerError, verifyResult(false, "failed to issue verification code"))
			}
			return
		}

		respondJSON(ctx, fasthttp.StatusOK, verifyResult(true, "verification code sent"))
	}
}

// ConfirmVerification handles POST /v1/channels/verify/confirm: redeem
// a code and mark the channel verified.
func ConfirmVerification(svc *verify.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		var req verifyRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "invalid request body")
			return
		}
		ch, known := dbpkg.ParseChannel(req.Channel)
		if !known {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "unknown channel")
			return
		}
		if req.Code == "" || req.Identifier == "" {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "code and identifier are required")
			return
		}

		if err := svc.Redeem(user, ch, req.Code, req.Identifier); err != nil {
			switch {
			case errors.Is(err, verify.ErrInvalidCode),
				errors.Is(err, verify.ErrCodeMismatch),
				errors.Is(err, verify.ErrCodeExpired):
				respondJSON(ctx, fasthttp.StatusBadRequest, verifyResult(false, err.Error()))
			default:
				respondJSON(ctx, fasthttp.StatusInternalServerError, verifyResult(false, "failed to redeem verification code"))
			}
			return
		}

		respondJSON(ctx, fasthttp.StatusOK, verifyResult(true, string(ch)+" verified"))
	}
}

func verifyResult(success bool, message string) map[string]any {
	return map[string]any{"success": success, "message": message}
}
