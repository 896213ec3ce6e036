package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	dbpkg "eventping/internal/db"
)

const defaultTypeColor = 0x7C3AED

// TypeStore is the persistence surface event-type management needs.
// Implemented by db.Store.
type TypeStore interface {
	TypeBySlug(userID uint, slug string) (*dbpkg.EventType, error)
	ListTypes(userID uint) ([]dbpkg.EventType, error)
	CreateType(t *dbpkg.EventType) error
	CreateTypes(types []dbpkg.EventType) error
	DeleteType(userID uint, slug string) error
}

type createTypeRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"` // hex, e.g. "#ff6b6b"
	Emoji string `json:"emoji,omitempty"`
}

// ListEventTypes handles GET /v1/event-types.
func ListEventTypes(store TypeStore) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		types, err := store.ListTypes(user.ID)
		if err != nil {
			respondError(ctx, fasthttp.StatusInternalServerError, "failed to list event types")
			return
		}

		out := make([]map[string]any, 0, len(types))
		for _, t := range types {
			out = append(out, typeJSON(t))
		}
		respondJSON(ctx, fasthttp.StatusOK, map[string]any{"eventTypes": out})
	}
}

// CreateEventType handles POST /v1/event-types.
func CreateEventType(store TypeStore) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		var req createTypeRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "name is required")
			return
		}

		slug := slugify(req.Name)
		if slug == "" {
			respondError(ctx, fasthttp.StatusUnprocessableEntity, "name must contain letters or digits")
			return
		}

		if _, err := store.TypeBySlug(user.ID, slug); err == nil {
			respondError(ctx, fasthttp.StatusConflict, "event type already exists")
			return
		} else if !errors.Is(err, dbpkg.ErrNotFound) {
			respondError(ctx, fasthttp.StatusInternalServerError, "event type lookup failed")
			return
		}

		color := defaultTypeColor
		if req.Color != "" {
			parsed, err := parseHexColor(req.Color)
			if err != nil {
				respondError(ctx, fasthttp.StatusUnprocessableEntity, "color must be a hex value like #ff6b6b")
				return
			}
			color = parsed
		}

		t := &dbpkg.EventType{
			UserID: user.ID,
			Slug:   slug,
			Name:   strings.TrimSpace(req.Name),
			Color:  color,
			Emoji:  req.Emoji,
		}
		if err := store.CreateType(t); err != nil {
			respondError(ctx, fasthttp.StatusInternalServerError, "failed to create event type")
			return
		}

		respondJSON(ctx, fasthttp.StatusCreated, typeJSON(*t))
	}
}

// DeleteEventType handles DELETE /v1/event-types/{slug}. Deleting a
// type removes its events as well.
func DeleteEventType(store TypeStore) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		slug, _ := ctx.UserValue("slug").(string)
		if slug == "" {
			respondError(ctx, fasthttp.StatusBadRequest, "slug required")
			return
		}

		if err := store.DeleteType(user.ID, slug); err != nil {
			if errors.Is(err, dbpkg.ErrNotFound) {
				respondError(ctx, fasthttp.StatusNotFound, "event type not found")
				return
			}
			respondError(ctx, fasthttp.StatusInternalServerError, "failed to delete event type")
			return
		}

		respondJSON(ctx, fasthttp.StatusOK, map[string]any{"message": "event type deleted"})
	}
}

// quickstartTypes are inserted in bulk so a new tenant can post events
// without any setup.
var quickstartTypes = []dbpkg.EventType{
	{Slug: "sale", Name: "sale", Color: 0x16A34A, Emoji: "💰"},
	{Slug: "signup", Name: "signup", Color: 0x2563EB, Emoji: "👤"},
	{Slug: "bug", Name: "bug", Color: 0xDC2626, Emoji: "🐛"},
}

// QuickstartEventTypes handles POST /v1/event-types/quickstart: bulk
// insert of the default types, skipping any slug the tenant already has.
func QuickstartEventTypes(store TypeStore) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		var missing []dbpkg.EventType
		for _, t := range quickstartTypes {
			if _, err := store.TypeBySlug(user.ID, t.Slug); err == nil {
				continue
			} else if !errors.Is(err, dbpkg.ErrNotFound) {
				respondError(ctx, fasthttp.StatusInternalServerError, "event type lookup failed")
				return
			}
			t.UserID = user.ID
			missing = append(missing, t)
		}

		if len(missing) > 0 {
			if err := store.CreateTypes(missing); err != nil {
				respondError(ctx, fasthttp.StatusInternalServerError, "failed to create event types")
				return
			}
		}

		respondJSON(ctx, fasthttp.StatusOK, map[string]any{"created": len(missing)})
	}
}

func typeJSON(t dbpkg.EventType) map[string]any {
	return map[string]any{
		"name":  t.Name,
		"slug":  t.Slug,
		"color": fmt.Sprintf("#%06x", t.Color),
		"emoji": t.Emoji,
	}
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases the name and collapses everything else to dashes,
// producing a value that satisfies the ingestion type pattern.
func slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

func parseHexColor(s string) (int, error) {
	s = strings.TrimPrefix(s, "#")
	v, err := strconv.ParseInt(s, 16, 32)
	if err != nil || len(s) != 6 {
		return 0, errors.New("invalid hex color")
	}
	return int(v), nil
}
