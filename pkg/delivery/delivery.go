// Package delivery turns verification records into outbound reset
// messages: an email carrying a reset link for email-identified requests,
// a plain-code SMS for phone-identified ones. The reset flow treats
// delivery as fire-and-forget; senders report errors but never block the
// flow.
package delivery

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/theschoolhq/gatekeeper/pkg/auth"
	"github.com/theschoolhq/gatekeeper/pkg/observability"
)

// DefaultResetLinkBase is where emailed reset links point unless
// configured otherwise.
const DefaultResetLinkBase = "https://app.theschool.pro/password/reset/"

// ResetLink builds the link embedded in reset emails.
func ResetLink(base, code string) string {
	if base == "" {
		base = DefaultResetLinkBase
	}
	return fmt.Sprintf("%s?otp=%s", base, code)
}

// EmailMessage is a rendered reset email.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// BuildEmail renders the reset email for a verification record.
func BuildEmail(v *auth.Verification, linkBase string) EmailMessage {
	link := ResetLink(linkBase, v.Code)
	return EmailMessage{
		To:      v.Email,
		Subject: "Password reset",
		Body:    fmt.Sprintf("You requested a password reset, please follow the link %s", link),
	}
}

// BuildSMS renders the reset SMS for a verification record.
func BuildSMS(v *auth.Verification) string {
	return fmt.Sprintf("You requested a password reset, your code is:\n%s\n", v.Code)
}

// LogSender logs rendered messages instead of transmitting them. It is
// the default sender for development and tests.
type LogSender struct {
	Logger   *observability.Logger
	LinkBase string
}

// NewLogSender creates a sender that only logs.
func NewLogSender(logger *observability.Logger, linkBase string) *LogSender {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &LogSender{Logger: logger, LinkBase: linkBase}
}

// Send logs the message that would have been delivered.
func (s *LogSender) Send(ctx context.Context, v *auth.Verification) error {
	if v.Email != "" {
		msg := BuildEmail(v, s.LinkBase)
		s.Logger.WithField("to", msg.To).WithField("subject", msg.Subject).Info("reset email (log delivery)")
		return nil
	}
	s.Logger.WithField("to", v.Phone).Info("reset sms (log delivery)")
	return nil
}

// SMTPSender delivers reset emails over SMTP. Phone-identified
// verifications are skipped; SMS delivery is an external collaborator
// wired separately in deployments that have one.
type SMTPSender struct {
	Addr     string // host:port
	From     string
	LinkBase string
}

// Send delivers the reset email.
func (s *SMTPSender) Send(ctx context.Context, v *auth.Verification) error {
	if v.Email == "" {
		return nil
	}
	msg := BuildEmail(v, s.LinkBase)
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")

	if err := smtp.SendMail(s.Addr, nil, s.From, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}
