package mailer

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/kolapodev-a11y/PropertyHub/internal/config"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/render"
)

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer tells owners their listing went live.
type SMTPMailer struct {
	sender    sender
	from      string
	publicURL string
}

func NewSMTPMailer(cfg config.SMTPConfig, publicURL string) *SMTPMailer {
	return &SMTPMailer{
		sender:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:      cfg.From,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (m *SMTPMailer) SendListingPosted(ctx context.Context, to string, l *domain.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == "" {
		return fmt.Errorf("SMTPMailer.SendListingPosted: no recipient")
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your listing is live on PropertyHub")
	msg.SetBody("text/plain", m.body(l))

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("SMTPMailer.SendListingPosted: %w", err)
	}
	return nil
}

func (m *SMTPMailer) body(l *domain.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your listing '%s' has been posted successfully.\n\n", l.Title)
	fmt.Fprintf(&b, "Category: %s\n", render.CategoryLabel(l.Category))
	fmt.Fprintf(&b, "Price: %s\n", render.FormatPrice(l.Price, l.Category))
	if m.publicURL != "" {
		fmt.Fprintf(&b, "\nView it at %s%s\n", m.publicURL, render.DetailURL(l.ID))
	}
	return b.String()
}
