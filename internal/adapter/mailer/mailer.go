// Package mailer delivers transactional e-mails.
package mailer

import (
	"context"
	"log/slog"
)

// Message is a plain text e-mail.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. It is
// used when no SMTP server is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("mail not delivered, smtp is not configured",
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}
