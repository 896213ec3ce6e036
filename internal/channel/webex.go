package channel

import (
	"context"
	"net/http"
	"time"
)

const defaultWebexAPI = "https://webexapis.com/v1"

// Webex posts adaptive cards to a person's email-style identifier.
// Event fields are chunked into pairs and rendered as two-column rows
// for readability. Any non-2xx response is a failure, never an error.
type Webex struct {
	BotToken string
	BaseURL  string
	Client   *http.Client
}

func NewWebex(botToken string, timeout time.Duration) *Webex {
	return &Webex{
		BotToken: botToken,
		BaseURL:  defaultWebexAPI,
		Client:   &http.Client{Timeout: timeout},
	}
}

func (w *Webex) Send(ctx context.Context, destination string, event EventData) Result {
	card := map[string]any{
		"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
		"type":    "AdaptiveCard",
		"version": "1.2",
		"body":    webexCardBody(event),
	}

	return w.post(ctx, map[string]any{
		"toPersonEmail": destination,
		"text":          event.Title,
		"attachments": []map[string]any{{
			"contentType": "application/vnd.microsoft.card.adaptive",
			"content":     card,
		}},
	})
}

func (w *Webex) SendText(ctx context.Context, destination, text string) Result {
	return w.post(ctx, map[string]any{
		"toPersonEmail": destination,
		"text":          text,
	})
}

func webexCardBody(event EventData) []map[string]any {
	body := []map[string]any{
		{
			"type":   "TextBlock",
			"text":   event.Title,
			"weight": "Bolder",
			"size":   "Medium",
			"wrap":   true,
		},
	}
	if event.Description != "" {
		body = append(body, map[string]any{
			"type": "TextBlock",
			"text": event.Description,
			"wrap": true,
		})
	}

	// Two fields per row.
	for start := 0; start < len(event.Fields); start += 2 {
		end := start + 2
		if end > len(event.Fields) {
			end = len(event.Fields)
		}
		columns := make([]map[string]any, 0, 2)
		for _, f := range event.Fields[start:end] {
			columns = append(columns, map[string]any{
				"type":  "Column",
				"width": "stretch",
				"items": []map[string]any{
					{"type": "TextBlock", "text": f.Name, "weight": "Bolder", "wrap": true},
					{"type": "TextBlock", "text": f.Value, "wrap": true, "spacing": "None"},
				},
			})
		}
		body = append(body, map[string]any{
			"type":    "ColumnSet",
			"columns": columns,
		})
	}

	return body
}

func (w *Webex) post(ctx context.Context, payload map[string]any) Result {
	if payload["toPersonEmail"] == "" {
		return fail("webex: empty destination email")
	}
	if w.BotToken == "" {
		return fail("webex: bot token not configured")
	}

	status, _, err := postJSON(ctx, w.Client, w.BaseURL+"/messages",
		map[string]string{"Authorization": "Bearer " + w.BotToken}, payload)
	if err != nil {
		return fail("webex: post message: %v", err)
	}
	if status < 200 || status >= 300 {
		return fail("webex: post message: status %d", status)
	}
	return ok()
}
