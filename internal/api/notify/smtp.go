package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/nepabhay/account-service/config"
	"github.com/nepabhay/account-service/internal/types"
)

var _ Notifier = (*SMTPNotifier)(nil)

// SMTPNotifier delivers lifecycle notifications as plain-text email.
type SMTPNotifier struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
}

func NewSMTPNotifier(cfg config.SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

func (s *SMTPNotifier) Notify(ctx context.Context, acct *types.Account, n Notification) {
	subject, body := composeMessage(acct, n)

	if err := s.send(acct.Email, subject, body); err != nil {
		// Logged only; a failed delivery never rolls back the transition.
		s.logger.ErrorContext(ctx, "Failed to deliver lifecycle notification",
			slog.String("event", string(n.Event)),
			slog.String("accountID", acct.ID.String()),
			slog.Any("error", err))
		return
	}

	s.logger.InfoContext(ctx, "Lifecycle notification delivered",
		slog.String("event", string(n.Event)),
		slog.String("accountID", acct.ID.String()))
}

func (s *SMTPNotifier) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	msg := buildMessage(s.cfg.From, to, subject, body)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func composeMessage(acct *types.Account, n Notification) (subject, body string) {
	switch n.Event {
	case EventDeactivated:
		subject = "Your Nepa:Bhay account has been deactivated"
		body = fmt.Sprintf("Namaste %s,\n\nYour account is now deactivated. You can reactivate it at any time by logging in.", acct.Username)
	case EventReactivated:
		subject = "Welcome back to Nepa:Bhay"
		body = fmt.Sprintf("Namaste %s,\n\nYour account has been reactivated.", acct.Username)
	case EventDeletionScheduled:
		subject = "Your Nepa:Bhay account is scheduled for deletion"
		body = fmt.Sprintf("Namaste %s,\n\nYour account will be permanently deleted on %s. Log in and cancel the request before then if you change your mind.",
			acct.Username, n.PurgeDate.Format(time.DateOnly))
	case EventDeletionCancelled:
		subject = "Your Nepa:Bhay account deletion was cancelled"
		body = fmt.Sprintf("Namaste %s,\n\nYour deletion request has been cancelled and your account is staying with us.", acct.Username)
	case EventBlocked:
		subject = "Your Nepa:Bhay account has been blocked"
		body = fmt.Sprintf("Namaste %s,\n\nYour account has been blocked by a moderator.", acct.Username)
		if n.Reason != "" {
			body += "\n\nReason: " + n.Reason
		}
		body += "\n\nPlease contact support if you believe this is a mistake."
	case EventUnblocked:
		subject = "Your Nepa:Bhay account has been unblocked"
		body = fmt.Sprintf("Namaste %s,\n\nYour account has been unblocked and is active again.", acct.Username)
	default:
		subject = "Your Nepa:Bhay account was updated"
		body = fmt.Sprintf("Namaste %s,\n\nThe state of your account changed.", acct.Username)
	}
	return subject, body
}

func buildMessage(from, to, subject, body string) string {
	lines := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}
	return strings.Join(lines, "\r\n")
}
