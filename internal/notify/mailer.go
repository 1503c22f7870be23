// Package notify delivers one-time codes to users.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const (
	otpSubject  = "Your OTP Code"
	senderName  = "Support Team"
	sendTimeout = 20 * time.Second
)

// MailerConfig holds the SMTP relay settings.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends codes through an SMTP relay.
type Mailer struct {
	cfg MailerConfig
	log *zap.Logger
}

func NewMailer(cfg MailerConfig, log *zap.Logger) *Mailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &Mailer{cfg: cfg, log: log.Named("mailer")}
}

func (m *Mailer) SendCode(ctx context.Context, email, code string) error {
	msg, err := m.message(email, code)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(sendTimeout),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		m.log.Error("mail send failed", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	m.log.Info("otp mail sent", zap.String("email", email))
	return nil
}

func (m *Mailer) message(email, code string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(senderName, m.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(email); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(otpSubject)
	msg.SetBodyString(mail.TypeTextPlain, otpBody(code))
	return msg, nil
}

func otpBody(code string) string {
	return fmt.Sprintf("Your OTP is %s. It is valid for 5 minutes.", code)
}
