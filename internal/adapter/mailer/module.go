package mailer

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/artshop/internal/config"
)

// Module exposes the mail sender to fx graph.
var Module = fx.Provide(newSender)

type senderParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newSender(p senderParams) (Sender, error) {
	if p.Config.SMTP.Host == "" {
		p.Logger.Warn("smtp host is not configured, e-mails are only logged")
		return NewLogSender(p.Logger), nil
	}
	return NewSMTPSender(smtpOptions(p.Config))
}

func smtpOptions(cfg *config.Config) SMTPOptions {
	return SMTPOptions{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.MailFrom,
		Timeout:  cfg.SMTP.Timeout,
	}
}
