package channel

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Email delivers events as a minimal HTML document through SendGrid.
type Email struct {
	From   string
	Client *sendgrid.Client
}

func NewEmail(apiKey, from string) *Email {
	return &Email{
		From:   from,
		Client: sendgrid.NewSendClient(apiKey),
	}
}

func (e *Email) Send(ctx context.Context, destination string, event EventData) Result {
	return e.deliver(ctx, destination, event.Title, renderEventHTML(event), event.Description)
}

func (e *Email) SendText(ctx context.Context, destination, text string) Result {
	return e.deliver(ctx, destination, "Your verification code", "", text)
}

func (e *Email) deliver(_ context.Context, destination, subject, htmlBody, plain string) Result {
	if destination == "" {
		return fail("email: empty destination address")
	}
	if e.Client == nil {
		return fail("email: sendgrid client not configured")
	}
	if plain == "" {
		plain = subject
	}

	from := mail.NewEmail("eventping", e.From)
	to := mail.NewEmail("", destination)
	message := mail.NewSingleEmail(from, subject, to, plain, htmlBody)

	resp, err := e.Client.Send(message)
	if err != nil {
		return fail("email: send: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail("email: send: status %d", resp.StatusCode)
	}
	return ok()
}

// renderEventHTML produces the notification body: title, description,
// and fields as labeled blocks.
func renderEventHTML(event EventData) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body style=\"font-family:sans-serif\">")
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(event.Title))
	if event.Description != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(event.Description))
	}
	for _, f := range event.Fields {
		fmt.Fprintf(&b, "<div style=\"margin:4px 0\"><strong>%s:</strong> %s</div>",
			html.EscapeString(f.Name), html.EscapeString(f.Value))
	}
	b.WriteString("</body></html>")
	return b.String()
}
