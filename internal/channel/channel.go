// Package channel contains the adapters that translate a generic event
// payload into one provider's wire format and deliver it, plus the
// registry that picks the adapter for a tenant's configuration.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Field is one key/value pair rendered in a notification.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// EventData is the canonical, channel-agnostic payload every adapter
// renders from.
type EventData struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Timestamp   time.Time
}

// Result is the uniform delivery outcome. Adapters never let an error
// escape as a panic or a returned error: every failure mode (network
// error, non-2xx response, malformed destination) becomes
// {Success: false, Message}.
type Result struct {
	Success bool
	Message string
}

func ok() Result {
	return Result{Success: true}
}

func fail(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Notifier is the capability every channel adapter provides. Send
// delivers a formatted event; SendText delivers a plain message (used
// for one-time verification codes).
type Notifier interface {
	Send(ctx context.Context, destination string, event EventData) Result
	SendText(ctx context.Context, destination, text string) Result
}

// postJSON performs one outbound provider call. The caller's client
// carries the send timeout, so a hanging provider surfaces as an error
// here rather than a hung request.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}
