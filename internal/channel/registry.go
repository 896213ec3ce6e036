package channel

import (
	"errors"
	"fmt"

	"eventping/internal/config"
	"eventping/internal/db"
)

// ErrNotConfigured is the base of every channel configuration failure:
// no active channel, missing identifier, or unverified identifier.
// Callers match with errors.Is and map it to a 403.
var ErrNotConfigured = errors.New("channel not configured")

// Registry maps the channel enum onto its adapter and validates a
// tenant's configuration before dispatch. Selection is a pure function
// of the tenant; the registry holds no per-request state.
type Registry struct {
	notifiers map[db.Channel]Notifier
}

// NewRegistry builds the production adapter set from config.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{notifiers: map[db.Channel]Notifier{
		db.ChannelDiscord:  NewDiscord(cfg.DiscordBotToken, cfg.SendTimeout),
		db.ChannelSlack:    NewSlack(cfg.SlackBotToken, cfg.SendTimeout),
		db.ChannelWebex:    NewWebex(cfg.WebexBotToken, cfg.SendTimeout),
		db.ChannelEmail:    NewEmail(cfg.SendGridAPIKey, cfg.EmailFrom),
		db.ChannelWhatsApp: WhatsApp{},
		db.ChannelTeams:    Teams{},
	}}
}

// NewRegistryWith builds a registry from an explicit adapter map.
// Used by tests to install spies.
func NewRegistryWith(notifiers map[db.Channel]Notifier) *Registry {
	return &Registry{notifiers: notifiers}
}

// ByChannel returns the adapter for a channel regardless of tenant
// configuration. The verification flow uses this to deliver codes to
// identifiers that are not yet verified or active.
func (r *Registry) ByChannel(ch db.Channel) (Notifier, bool) {
	n, ok := r.notifiers[ch]
	return n, ok
}

// Select resolves the adapter and destination for the tenant's active
// channel. It fails if no channel is activated, the identifier is
// empty, or the identifier has not been verified.
func (r *Registry) Select(u *db.User) (Notifier, string, error) {
	if u.ActiveChannel == db.ChannelNone {
		return nil, "", fmt.Errorf("%w: no channel activated", ErrNotConfigured)
	}

	n, known := r.notifiers[u.ActiveChannel]
	if !known {
		return nil, "", fmt.Errorf("%w: unknown channel %s", ErrNotConfigured, u.ActiveChannel)
	}

	destination := u.Destination(u.ActiveChannel)
	if destination == "" {
		return nil, "", fmt.Errorf("%w: missing identifier for %s", ErrNotConfigured, u.ActiveChannel)
	}
	if u.ChannelVerifiedAt(u.ActiveChannel) == nil {
		return nil, "", fmt.Errorf("%w: %s identifier is not verified", ErrNotConfigured, u.ActiveChannel)
	}

	return n, destination, nil
}
