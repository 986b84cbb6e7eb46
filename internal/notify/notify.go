// Package notify sends operational e-mail to tenant staff.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Message is a plain-text e-mail.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Notifier delivers messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the request logger instead of sending them. It is
// used in development and when no mail provider is configured.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, msg Message) error {
	zerolog.Ctx(ctx).Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Msg("notification (not sent)")
	return nil
}

// SubmissionMessage builds the notice sent to tenant managers when a carrier submits
// a form.
func SubmissionMessage(to []string, tenantName, formName, carrierName, submissionID string) Message {
	if carrierName == "" {
		carrierName = "A carrier"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s submitted %q on the %s onboarding portal.\n\n", carrierName, formName, tenantName)
	fmt.Fprintf(&b, "Submission: %s\n", submissionID)
	b.WriteString("Review it from your dashboard.\n")

	return Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] %s submitted", tenantName, formName),
		Body:    b.String(),
	}
}
