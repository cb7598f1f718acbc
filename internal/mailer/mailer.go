// Package mailer delivers transactional e-mail.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/config"
)

// Message is a plain-text e-mail.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer when SMTP_HOST is set and a log mailer otherwise.
func New(cfg *config.Config, logger *slog.Logger) Mailer {
	if cfg.SMTPHost == "" {
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailSender)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer relays through an SMTP server with STARTTLS when offered.
type SMTPMailer struct {
	host string
	addr string
	auth smtp.Auth
	from string
	send sendFunc
}

// NewSMTPMailer returns a mailer for host:port. Empty username disables AUTH.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	m := &SMTPMailer{
		host: host,
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		from: from,
		send: smtp.SendMail,
	}
	if username != "" {
		m.auth = smtp.PlainAuth("", username, password, host)
	}
	return m
}

// Send delivers msg. net/smtp has no context support, so ctx is only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("mailer: no recipients")
	}
	raw := Render(m.from, msg, time.Now())
	if err := m.send(m.addr, m.auth, m.from, msg.To, raw); err != nil {
		return fmt.Errorf("mailer: send via %s: %w", m.addr, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer returns a LogMailer. A nil logger uses slog.Default().
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "outgoing mail",
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

// Render builds an RFC 5322 message. Header values are stripped of line breaks.
func Render(from string, msg Message, date time.Time) []byte {
	var b strings.Builder
	writeHeader(&b, "From", from)
	writeHeader(&b, "To", strings.Join(msg.To, ", "))
	writeHeader(&b, "Subject", msg.Subject)
	writeHeader(&b, "Date", date.Format(time.RFC1123Z))
	writeHeader(&b, "MIME-Version", "1.0")
	writeHeader(&b, "Content-Type", `text/plain; charset="UTF-8"`)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

func writeHeader(b *strings.Builder, key, value string) {
	value = strings.NewReplacer("\r", "", "\n", "").Replace(value)
	b.WriteString(key + ": " + value + "\r\n")
}

// PasswordResetMessage is the e-mail carrying a reset link.
func PasswordResetMessage(to, link string) Message {
	return Message{
		To:      []string{to},
		Subject: "Password Reset Request",
		Body: "To reset your password, visit the following link:\n" +
			link + "\n" +
			"If you did not make this request then simply ignore this email and no changes will be made.\n",
	}
}
