package worker

// notification_worker.go
// Processes entry_submitted jobs from QueueNotifications and mails a short
// summary to the configured address.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Sender delivers a plain-text e-mail. *infra.Mailer satisfies it.
type Sender interface {
	Send(to, subject, body string) error
}

// NotificationWorker turns entry_submitted jobs into e-mails.
type NotificationWorker struct {
	mailer Sender
	to     string
}

func NewNotificationWorker(mailer Sender, to string) *NotificationWorker {
	return &NotificationWorker{mailer: mailer, to: to}
}

// Process sends the notification. Malformed payloads are dropped without
// retry; send failures are returned so the pool retries them.
func (w *NotificationWorker) Process(_ context.Context, raw json.RawMessage) error {
	var p EntrySubmittedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error().Err(err).Msg("notification_worker: invalid payload")
		return nil
	}

	subject := fmt.Sprintf("New CRM entry #%d from %s", p.EntryID, p.SalePerson)
	if err := w.mailer.Send(w.to, subject, renderEntryMail(p)); err != nil {
		return err
	}
	log.Info().Uint("entry_id", p.EntryID).Str("to", w.to).Msg("notification_worker: entry notification sent")
	return nil
}

func renderEntryMail(p EntrySubmittedPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A new CRM entry was submitted by %s.\n\n", p.SalePerson)
	fmt.Fprintf(&b, "Person:  %s\n", p.PersonName)
	fmt.Fprintf(&b, "Company: %s\n", p.CompanyName)
	if p.Case != "" {
		fmt.Fprintf(&b, "Case:    %s\n", p.Case)
	}
	if p.Status != "" {
		fmt.Fprintf(&b, "Status:  %s\n", p.Status)
	}
	if !p.SubmittedAt.IsZero() {
		fmt.Fprintf(&b, "At:      %s\n", p.SubmittedAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}
