package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultSlackAPI = "https://slack.com/api"

// slackFieldsPerSection is Slack's limit on fields in one section block.
const slackFieldsPerSection = 10

// Slack posts block-based messages to a channel or user ID via
// chat.postMessage. Slack signals API errors inside a 200 response, so
// the "ok" field is checked in addition to the HTTP status.
type Slack struct {
	BotToken string
	BaseURL  string
	Client   *http.Client
}

func NewSlack(botToken string, timeout time.Duration) *Slack {
	return &Slack{
		BotToken: botToken,
		BaseURL:  defaultSlackAPI,
		Client:   &http.Client{Timeout: timeout},
	}
}

func (s *Slack) Send(ctx context.Context, destination string, event EventData) Result {
	blocks := []map[string]any{
		{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*%s*\n%s", event.Title, event.Description),
			},
		},
	}

	for start := 0; start < len(event.Fields); start += slackFieldsPerSection {
		end := start + slackFieldsPerSection
		if end > len(event.Fields) {
			end = len(event.Fields)
		}
		fields := make([]map[string]any, 0, end-start)
		for _, f := range event.Fields[start:end] {
			fields = append(fields, map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*%s*\n%s", f.Name, f.Value),
			})
		}
		blocks = append(blocks, map[string]any{"type": "section", "fields": fields})
	}

	return s.post(ctx, map[string]any{
		"channel": destination,
		"text":    event.Title,
		"blocks":  blocks,
	})
}

// SendText posts a plain message with no blocks, used for OTP delivery.
func (s *Slack) SendText(ctx context.Context, destination, text string) Result {
	return s.post(ctx, map[string]any{
		"channel": destination,
		"text":    text,
	})
}

func (s *Slack) post(ctx context.Context, payload map[string]any) Result {
	if payload["channel"] == "" {
		return fail("slack: empty destination channel id")
	}
	if s.BotToken == "" {
		return fail("slack: bot token not configured")
	}

	status, body, err := postJSON(ctx, s.Client, s.BaseURL+"/chat.postMessage",
		map[string]string{"Authorization": "Bearer " + s.BotToken}, payload)
	if err != nil {
		return fail("slack: post message: %v", err)
	}
	if status < 200 || status >= 300 {
		return fail("slack: post message: status %d", status)
	}

	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fail("slack: post message: malformed response")
	}
	if !resp.OK {
		return fail("slack: post message: %s", resp.Error)
	}
	return ok()
}
