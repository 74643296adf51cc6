// Package report delivers operator-facing notifications about scoring
// changes and integrity failures. The engine depends only on the Sender
// interface; delivery is a collaborator concern.
package report

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/klbrun/klbapi/config"
)

// Sender accepts a rendered message and a target address and reports
// success or failure of delivery.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender delivers reports over plain SMTP.
type SMTPSender struct {
	Addr string
	From string
}

// Send builds an RFC-822 style message and submits it.
func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogSender writes reports to the structured log. Used when no SMTP
// server is configured (development, tests).
type LogSender struct {
	Log *zap.Logger
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.Log.Info("operator report",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// FromConfig picks SMTP delivery when an address is configured, the log
// sender otherwise.
func FromConfig(cfg *config.Config, log *zap.Logger) Sender {
	if cfg.SMTPAddr != "" {
		return &SMTPSender{Addr: cfg.SMTPAddr, From: cfg.ReportFrom}
	}
	return &LogSender{Log: log}
}
