// Package mailer delivers plain-text notification email.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends email through an unauthenticated SMTP relay such as Mailpit.
type SMTPSender struct {
	addr string
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender builds a sender for host:port.
func NewSMTPSender(host string, port int, from string) *SMTPSender {
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@tutoring.local"
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", strings.TrimSpace(host), port),
		from: from,
		send: smtp.SendMail,
	}
}

// Send delivers msg. The context is only checked before dialing because net/smtp has no
// context-aware API.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mailer: empty recipient")
	}
	if err := s.send(s.addr, nil, s.from, []string{msg.To}, buildMessage(s.from, msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// NoopSender discards every message. It is used when mail delivery is disabled.
type NoopSender struct{}

// Send implements Sender.
func (NoopSender) Send(context.Context, Message) error { return nil }

func buildMessage(from string, msg Message) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from, msg.To, msg.Subject, msg.Body,
	))
}
