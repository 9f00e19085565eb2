package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tazhibayda/smartfarm-api/internal/queue"
)

// Notifier turns account events into mail.
type Notifier struct {
	Sender Sender
}

func (n *Notifier) Handle(ctx context.Context, key string, body []byte) error {
	switch key {
	case queue.KeyUserRegistered:
		var ev queue.UserRegistered
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil // poison message, requeue would loop forever
		}
		return n.SendWelcome(ctx, ev)
	case queue.KeyUserLinked:
		var ev queue.UserLinked
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil
		}
		return n.SendLinked(ctx, ev)
	}
	return nil
}

func (n *Notifier) SendWelcome(ctx context.Context, ev queue.UserRegistered) error {
	if ev.Email == "" {
		return nil
	}
	body := fmt.Sprintf("Hi %s,\n\nyour SmartFarm account %s is ready.\n", ev.Username, ev.PublicID)
	if ev.Provider != "" {
		body += fmt.Sprintf("You signed up with %s.\n", ev.Provider)
	}
	return n.Sender.Send(ctx, ev.Email, "Welcome to SmartFarm", body)
}

func (n *Notifier) SendLinked(ctx context.Context, ev queue.UserLinked) error {
	if ev.Email == "" {
		return nil
	}
	body := fmt.Sprintf("Hi %s,\n\n%s sign-in was linked to your SmartFarm account %s.\nIf this was not you, contact support.\n",
		ev.Username, ev.Provider, ev.PublicID)
	return n.Sender.Send(ctx, ev.Email, "New sign-in method linked", body)
}
