package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const defaultDiscordAPI = "https://discord.com/api/v10"

// Discord delivers events as rich embeds over a direct-message channel
// opened with the bot API. Delivery is a two-step protocol: create (or
// reuse) the DM channel for the recipient, then post the message.
// Failure at either step is a delivery failure.
type Discord struct {
	BotToken string
	BaseURL  string
	Client   *http.Client
}

func NewDiscord(botToken string, timeout time.Duration) *Discord {
	return &Discord{
		BotToken: botToken,
		BaseURL:  defaultDiscordAPI,
		Client:   &http.Client{Timeout: timeout},
	}
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Timestamp   string              `json:"timestamp"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func (d *Discord) Send(ctx context.Context, destination string, event EventData) Result {
	channelID, res := d.openDM(ctx, destination)
	if !res.Success {
		return res
	}

	fields := make([]discordEmbedField, 0, len(event.Fields))
	for _, f := range event.Fields {
		fields = append(fields, discordEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}

	payload := map[string]any{
		"embeds": []discordEmbed{{
			Title:       event.Title,
			Description: event.Description,
			Color:       event.Color,
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Fields:      fields,
		}},
	}
	return d.postMessage(ctx, channelID, payload)
}

func (d *Discord) SendText(ctx context.Context, destination, text string) Result {
	channelID, res := d.openDM(ctx, destination)
	if !res.Success {
		return res
	}
	return d.postMessage(ctx, channelID, map[string]any{"content": text})
}

// openDM creates or reuses the direct-message channel for the user ID.
func (d *Discord) openDM(ctx context.Context, userID string) (string, Result) {
	if userID == "" {
		return "", fail("discord: empty destination user id")
	}
	if d.BotToken == "" {
		return "", fail("discord: bot token not configured")
	}

	status, body, err := postJSON(ctx, d.Client, d.BaseURL+"/users/@me/channels",
		d.headers(), map[string]string{"recipient_id": userID})
	if err != nil {
		return "", fail("discord: create DM channel: %v", err)
	}
	if status < 200 || status >= 300 {
		return "", fail("discord: create DM channel: status %d", status)
	}

	var dm struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &dm); err != nil || dm.ID == "" {
		return "", fail("discord: create DM channel: malformed response")
	}
	return dm.ID, ok()
}

func (d *Discord) postMessage(ctx context.Context, channelID string, payload any) Result {
	status, _, err := postJSON(ctx, d.Client, d.BaseURL+"/channels/"+channelID+"/messages",
		d.headers(), payload)
	if err != nil {
		return fail("discord: send message: %v", err)
	}
	if status < 200 || status >= 300 {
		return fail("discord: send message: status %d", status)
	}
	return ok()
}

func (d *Discord) headers() map[string]string {
	return map[string]string{"Authorization": "Bot " + d.BotToken}
}
