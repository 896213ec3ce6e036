package db

import (
	"time"

	"eventping/internal/plan"
)

// Channel identifies an external notification destination.
type Channel string

const (
	ChannelNone     Channel = "NONE"
	ChannelDiscord  Channel = "DISCORD"
	ChannelSlack    Channel = "SLACK"
	ChannelWebex    Channel = "WEBEX"
	ChannelEmail    Channel = "EMAIL"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelTeams    Channel = "TEAMS"
)

// Channels lists every deliverable channel (NONE excluded).
var Channels = []Channel{
	ChannelDiscord, ChannelSlack, ChannelWebex,
	ChannelEmail, ChannelWhatsApp, ChannelTeams,
}

// ParseChannel maps a request string onto a known deliverable channel.
func ParseChannel(s string) (Channel, bool) {
	for _, ch := range Channels {
		if string(ch) == s {
			return ch, true
		}
	}
	return ChannelNone, false
}

// User represents a tenant: a registered account that owns event types,
// ingests events with its API key, and receives notifications on its
// active channel.
type User struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Email string `gorm:"uniqueIndex;size:255;not null"`

	Plan plan.Tier `gorm:"size:16;not null;default:FREE"`

	// APIKeyHash is the bcrypt hash of the tenant's ingestion key.
	// The plaintext key is shown once at issuance and never stored.
	APIKeyHash string `gorm:"size:255"`

	// ActiveChannel selects which destination live deliveries go to.
	// Activation requires the channel's identifier to be set and verified.
	ActiveChannel Channel `gorm:"size:16;not null;default:NONE"`

	DiscordID  string `gorm:"size:255"`
	SlackID    string `gorm:"size:255"`
	WebexID    string `gorm:"size:255"`
	EmailID    string `gorm:"size:255"`
	WhatsAppID string `gorm:"size:255"`
	TeamsID    string `gorm:"size:255"`

	// A nil verified-at means the identifier has not been proven via
	// the one-time-code flow.
	DiscordVerifiedAt  *time.Time
	SlackVerifiedAt    *time.Time
	WebexVerifiedAt    *time.Time
	EmailVerifiedAt    *time.Time
	WhatsAppVerifiedAt *time.Time
	TeamsVerifiedAt    *time.Time
}

// Destination returns the tenant's identifier for the given channel.
func (u *User) Destination(ch Channel) string {
	switch ch {
	case ChannelDiscord:
		return u.DiscordID
	case ChannelSlack:
		return u.SlackID
	case ChannelWebex:
		return u.WebexID
	case ChannelEmail:
		return u.EmailID
	case ChannelWhatsApp:
		return u.WhatsAppID
	case ChannelTeams:
		return u.TeamsID
	}
	return ""
}

// SetDestination records the tenant's identifier for the given channel.
// Changing an identifier clears any previous verification for it.
func (u *User) SetDestination(ch Channel, id string) {
	switch ch {
	case ChannelDiscord:
		u.DiscordID, u.DiscordVerifiedAt = id, nil
	case ChannelSlack:
		u.SlackID, u.SlackVerifiedAt = id, nil
	case ChannelWebex:
		u.WebexID, u.WebexVerifiedAt = id, nil
	case ChannelEmail:
		u.EmailID, u.EmailVerifiedAt = id, nil
	case ChannelWhatsApp:
		u.WhatsAppID, u.WhatsAppVerifiedAt = id, nil
	case ChannelTeams:
		u.TeamsID, u.TeamsVerifiedAt = id, nil
	}
}

// ChannelVerifiedAt returns when the channel's identifier was verified,
// or nil if it never was.
func (u *User) ChannelVerifiedAt(ch Channel) *time.Time {
	switch ch {
	case ChannelDiscord:
		return u.DiscordVerifiedAt
	case ChannelSlack:
		return u.SlackVerifiedAt
	case ChannelWebex:
		return u.WebexVerifiedAt
	case ChannelEmail:
		return u.EmailVerifiedAt
	case ChannelWhatsApp:
		return u.WhatsAppVerifiedAt
	case ChannelTeams:
		return u.TeamsVerifiedAt
	}
	return nil
}

// MarkChannelVerified binds the identifier to the tenant and stamps it
// verified.
func (u *User) MarkChannelVerified(ch Channel, id string, at time.Time) {
	switch ch {
	case ChannelDiscord:
		u.DiscordID, u.DiscordVerifiedAt = id, &at
	case ChannelSlack:
		u.SlackID, u.SlackVerifiedAt = id, &at
	case ChannelWebex:
		u.WebexID, u.WebexVerifiedAt = id, &at
	case ChannelEmail:
		u.EmailID, u.EmailVerifiedAt = id, &at
	case ChannelWhatsApp:
		u.WhatsAppID, u.WhatsAppVerifiedAt = id, &at
	case ChannelTeams:
		u.TeamsID, u.TeamsVerifiedAt = id, &at
	}
}
