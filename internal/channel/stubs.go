package channel

import (
	"context"
	"log"
)

// WhatsApp is a placeholder adapter. It logs the delivery and reports
// success so the rest of the pipeline can be exercised end to end
// before a real provider integration lands.
type WhatsApp struct{}

func (WhatsApp) Send(_ context.Context, destination string, event EventData) Result {
	log.Printf("whatsapp (stub): would deliver %q to %s", event.Title, destination)
	return ok()
}

func (WhatsApp) SendText(_ context.Context, destination, text string) Result {
	log.Printf("whatsapp (stub): would deliver message to %s", destination)
	return ok()
}

// Teams is a placeholder adapter, same contract as WhatsApp.
type Teams struct{}

func (Teams) Send(_ context.Context, destination string, event EventData) Result {
	log.Printf("teams (stub): would deliver %q to %s", event.Title, destination)
	return ok()
}

func (Teams) SendText(_ context.Context, destination, text string) Result {
	log.Printf("teams (stub): would deliver message to %s", destination)
	return ok()
}
