// Package mailer delivers invitation links by email. Delivery is optional:
// construction without an API key yields a nil mailer and the invitation
// link alone remains the sharing mechanism.
package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

type Mailer struct {
	client *sendgrid.Client
	from   string
	log    *logrus.Entry
}

// New returns nil when no API key is configured.
func New(apiKey, from string, log *logrus.Logger) *Mailer {
	if apiKey == "" {
		return nil
	}
	return &Mailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   from,
		log:    log.WithField("component", "mailer"),
	}
}

func (m *Mailer) SendInvitation(ctx context.Context, email, teamName, role, link string) error {
	subject := fmt.Sprintf("%s への招待", teamName)
	plain := fmt.Sprintf(
		"%s に %s として招待されました。\n\n以下のリンクから参加してください（7日間有効）:\n%s\n",
		teamName, role, link,
	)

	message := mail.NewSingleEmail(
		mail.NewEmail("todohub", m.from),
		subject,
		mail.NewEmail("", email),
		plain,
		"",
	)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("invitation mail send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("invitation mail rejected: status %d", resp.StatusCode)
	}
	m.log.WithFields(logrus.Fields{"email": email, "team": teamName}).Info("invitation mail sent")
	return nil
}
