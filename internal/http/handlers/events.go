package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"

	"eventping/internal/channel"
	dbpkg "eventping/internal/db"
	"eventping/internal/quota"
)

// defaultEmoji prefixes event titles when the type has none.
const defaultEmoji = "🔔"

var typeNamePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// IngestStore is the persistence surface ingestion needs. Implemented
// by db.Store.
type IngestStore interface {
	TypeBySlug(userID uint, slug string) (*dbpkg.EventType, error)
	CreateEvent(e *dbpkg.Event) error
	EventByPublicID(userID uint, publicID string) (*dbpkg.Event, error)
}

// QuotaGate gates ingestion before delivery is attempted. Implemented
// by quota.Ledger.
type QuotaGate interface {
	Allow(u *dbpkg.User) error
}

// EventDispatcher performs the delivery half of ingestion. Implemented
// by dispatch.Dispatcher.
type EventDispatcher interface {
	ValidateChannel(u *dbpkg.User) error
	Dispatch(ctx context.Context, u *dbpkg.User, e *dbpkg.Event, data channel.EventData) channel.Result
}

type ingestRequest struct {
	Type        string         `json:"type"`
	Fields      map[string]any `json:"fields,omitempty"`
	Description string         `json:"description,omitempty"`
}

// IngestEvent handles POST /v1/events: the tenant's application posts
// an occurrence, and the service delivers it to the active channel.
//
// Order matters: channel misconfiguration (403) and quota exhaustion
// (429) are detected before the body is parsed or any row is written,
// so a rejected request leaves no trace. The event row is persisted as
// PENDING before dispatch so a record exists even if the send fails
// irrecoverably.
func IngestEvent(store IngestStore, gate QuotaGate, disp EventDispatcher) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		if err := disp.ValidateChannel(user); err != nil {
			respondError(ctx, fasthttp.StatusForbidden, err.Error())
			return
		}

		if err := gate.Allow(user); err != nil {
			if errors.Is(err, quota.ErrExceeded) {
				respondError(ctx, fasthttp.StatusTooManyRequests, err.Error())
				return
			}
			respondError(ctx, fasthttp.StatusInternalServerError, "quota lookup failed")
			return
		}

		req, errMsg := parseIngestBody(ctx.PostBody())
		if errMsg != "" {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, errMsg)
			return
		}

		eventType, err := store.TypeBySlug(user.ID, req.Type)
		if err != nil {
			if errors.Is(err, dbpkg.ErrNotFound) {
				respondError(ctx, fasthttp.StatusNotFound, fmt.Sprintf("unknown event type %q", req.Type))
				return
			}
			respondError(ctx, fasthttp.StatusInternalServerError, "event type lookup failed")
			return
		}

		fields := datatypes.JSONMap{}
		for k, v := range req.Fields {
			fields[k] = v
		}

		event := &dbpkg.Event{
			PublicID:       uuid.NewString(),
			UserID:         user.ID,
			EventTypeID:    eventType.ID,
			Name:           eventType.Name,
			Fields:         fields,
			DeliveryStatus: dbpkg.StatusPending,
			Channel:        user.ActiveChannel,
		}
		if err := store.CreateEvent(event); err != nil {
			respondError(ctx, fasthttp.StatusInternalServerError, "failed to persist event")
			return
		}

		data := buildEventData(eventType, req, event)
		res := disp.Dispatch(ctx, user, event, data)
		if !res.Success {
			respondJSON(ctx, fasthttp.StatusInternalServerError, map[string]any{
				"message": "delivery failed: " + res.Message,
				"eventId": event.PublicID,
			})
			return
		}

		respondJSON(ctx, fasthttp.StatusOK, map[string]any{
			"message": "event delivered",
			"eventId": event.PublicID,
		})
	}
}

// parseIngestBody decodes the strict request schema. Unknown top-level
// keys, a malformed type name, and non-flat fields are all rejected.
func parseIngestBody(body []byte) (ingestRequest, string) {
	var req ingestRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, "invalid request body: " + err.Error()
	}
	if dec.More() {
		return req, "invalid request body: trailing data"
	}

	if req.Type == "" {
		return req, "type is required"
	}
	if !typeNamePattern.MatchString(req.Type) {
		return req, "type must match ^[A-Za-z0-9-]+$"
	}

	for k, v := range req.Fields {
		switch v.(type) {
		case string, float64, bool:
		case map[string]any:
			return req, fmt.Sprintf("field %q: nested objects not supported", k)
		default:
			return req, fmt.Sprintf("field %q: values must be string, number or boolean", k)
		}
	}

	return req, ""
}

// buildEventData assembles the canonical channel-agnostic payload:
// emoji-prefixed capitalized title, caller or generated description,
// the type's color, and the fields stringified in stable order.
func buildEventData(t *dbpkg.EventType, req ingestRequest, event *dbpkg.Event) channel.EventData {
	emoji := t.Emoji
	if emoji == "" {
		emoji = defaultEmoji
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("A new %s event has occurred.", t.Name)
	}

	keys := make([]string, 0, len(req.Fields))
	for k := range req.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]channel.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, channel.Field{
			Name:   k,
			Value:  stringifyField(req.Fields[k]),
			Inline: true,
		})
	}

	return channel.EventData{
		Title:       emoji + " " + capitalize(t.Name),
		Description: description,
		Color:       t.Color,
		Fields:      fields,
		Timestamp:   event.CreatedAt,
	}
}

func stringifyField(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return fmt.Sprintf("%v", v)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// EventDetail handles GET /v1/events/{id}: tenants look up the
// delivery outcome of an ingested event by its public id.
func EventDetail(store IngestStore) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		idVal, _ := ctx.UserValue("id").(string)
		if idVal == "" {
			respondError(ctx, fasthttp.StatusBadRequest, "id required")
			return
		}

		event, err := store.EventByPublicID(user.ID, idVal)
		if err != nil {
			if errors.Is(err, dbpkg.ErrNotFound) {
				respondError(ctx, fasthttp.StatusNotFound, "event not found")
				return
			}
			respondError(ctx, fasthttp.StatusInternalServerError, "failed to load event")
			return
		}

		resp := map[string]any{
			"eventId":   event.PublicID,
			"name":      event.Name,
			"status":    string(event.DeliveryStatus),
			"channel":   string(event.Channel),
			"createdAt": event.CreatedAt,
			"fields":    map[string]any(event.Fields),
		}
		if event.FailureReason != "" {
			resp["failureReason"] = event.FailureReason
		}
		respondJSON(ctx, fasthttp.StatusOK, resp)
	}
}
