// Package messaging sends the notifications the outbox engine delivers:
// transactional email (booking confirmations, invoice links, worker
// schedules) and outbound export webhooks. Adapted from the teacher's
// provider-agnostic chat-notification interface — the same "Provider with a
// Name, dispatched by kind" shape, now over email/webhook instead of
// Slack/Mattermost.
package messaging

import "context"

// Provider is the interface every delivery channel implements.
type Provider interface {
	// Name returns the provider identifier ("email", "webhook").
	Name() string

	// Send delivers a single rendered message and returns a provider-specific
	// reference (e.g. the SMTP message ID) for logging.
	Send(ctx context.Context, msg Message) (string, error)
}
