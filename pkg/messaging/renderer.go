package messaging

import (
	"bytes"
	"fmt"
	"html/template"
)

// templates maps a message kind to its subject + body templates.
var templates = map[string]struct {
	subject string
	body    string
}{
	"booking_confirmed": {
		subject: "Your cleaning is confirmed for {{.ScheduledDate}}",
		body:    "Hi {{.CustomerName}},\n\nYour booking is confirmed for {{.ScheduledDate}} at {{.ScheduledTime}}.\n\nView details: {{.BookingURL}}\n",
	},
	"deposit_receipt": {
		subject: "Deposit received — booking confirmed",
		body:    "Hi {{.CustomerName}},\n\nWe received your deposit of {{.Amount}}. Your booking is now confirmed.\n",
	},
	"invoice_ready": {
		subject: "Your invoice #{{.InvoiceNumber}} is ready",
		body:    "Hi {{.CustomerName}},\n\nYour invoice is ready: {{.InvoiceURL}}\n",
	},
	"worker_assigned": {
		subject: "New job assigned: {{.ScheduledDate}}",
		body:    "You've been assigned a job on {{.ScheduledDate}} at {{.Address}}.\n",
	},
}

// Render fills the named template for kind with data, returning subject and
// plain-text body.
func Render(kind string, data map[string]any) (subject, body string, err error) {
	t, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("no template registered for message kind %q", kind)
	}

	subject, err = execute(t.subject, data)
	if err != nil {
		return "", "", fmt.Errorf("rendering subject for %q: %w", kind, err)
	}
	body, err = execute(t.body, data)
	if err != nil {
		return "", "", fmt.Errorf("rendering body for %q: %w", kind, err)
	}
	return subject, body, nil
}

func execute(tmpl string, data map[string]any) (string, error) {
	parsed, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := parsed.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Truncate returns s truncated to max characters with "..." appended.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
