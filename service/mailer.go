package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"toolx/config"
	"toolx/entity"
	"toolx/pkg/logger"

	"gopkg.in/gomail.v2"
)

const sendTimeout = 30 * time.Second

// Mailer sends OTP and reminder emails over SMTP. Without credentials it logs the message
// instead, which keeps local development usable.
type Mailer struct {
	cfg    config.SMTP
	cc     string
	otpTTL time.Duration
	ssl    bool
	tlsCfg *tls.Config
	logger *logger.Logger
}

// NewMailer creates a mailer. cc is copied on reminder emails when set.
func NewMailer(cfg config.SMTP, cc string, otpTTL time.Duration, logger *logger.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		cc:     cc,
		otpTTL: otpTTL,
		ssl:    cfg.Port == 465,
		tlsCfg: &tls.Config{
			ServerName: cfg.Host,
			MinVersion: tls.VersionTLS12,
		},
		logger: logger,
	}
}

func (m *Mailer) configured() bool {
	return m.cfg.User != "" && m.cfg.Password != ""
}

// SendOTP emails code to email.
func (m *Mailer) SendOTP(ctx context.Context, email, code string) error {
	if !m.configured() {
		m.logger.Warnw("SMTP credentials missing, logging OTP instead", "email", email, "code", code)
		return nil
	}

	minutes := int(m.otpTTL.Minutes())
	msg := m.newMessage(email, "ToolX OTP Code")
	msg.SetBody("text/plain", fmt.Sprintf("ToolX Verification\nOTP: %s\nValid for %d minutes.", code, minutes))
	msg.AddAlternative("text/html", fmt.Sprintf(`<div style="font-family:Arial, sans-serif;line-height:1.6">
  <h2>ToolX Verification</h2>
  <p>Your OTP code is:</p>
  <div style="font-size:24px;font-weight:bold;letter-spacing:4px">%s</div>
  <p>The code is valid for %d minutes. If you did not request it, ignore this email.</p>
</div>`, code, minutes))

	return m.send(ctx, msg)
}

// SendReminder emails a renewal reminder for sub.
func (m *Mailer) SendReminder(ctx context.Context, sub entity.Subscription, tag string) error {
	if !m.configured() {
		m.logger.Warnw("SMTP credentials missing, logging reminder instead",
			"email", sub.Email, "subscription", sub.Name, "tag", tag)
		return nil
	}

	subject := fmt.Sprintf("ToolX • Renewal reminder for %s", sub.Name)
	if days, ok := entity.ReminderDays[tag]; ok {
		subject = fmt.Sprintf("ToolX • Renewal reminder for %s (%d days left)", sub.Name, days)
	}

	msg := m.newMessage(sub.Email, subject)
	if m.cc != "" {
		msg.SetHeader("Cc", m.cc)
	}
	msg.SetBody("text/plain", fmt.Sprintf(
		"Your subscription %s renews on %s.\nCycle: %s\nAmount: %s\n",
		sub.Name, sub.NextBillingDate, sub.Cycle, formatVND(sub.Cost),
	))

	return m.send(ctx, msg)
}

func (m *Mailer) newMessage(to, subject string) *gomail.Message {
	msg := gomail.NewMessage(
		gomail.SetCharset("UTF-8"),
		gomail.SetEncoding(gomail.Base64),
	)
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	return msg
}

// send runs one SMTP session. The connection deadline comes from ctx, or sendTimeout when
// ctx has none, and cancelling ctx closes the connection, so no session outlives the call.
func (m *Mailer) send(ctx context.Context, msg *gomail.Message) error {
	if err := m.deliver(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *Mailer) deliver(ctx context.Context, msg *gomail.Message) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(sendTimeout)
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port)))
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if m.ssl {
		conn = tls.Client(conn, m.tlsCfg)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if !m.ssl {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(m.tlsCfg); err != nil {
				return err
			}
		}
	}
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)); err != nil {
			return err
		}
	}

	sender := gomail.SendFunc(func(from string, to []string, body io.WriterTo) error {
		if err := client.Mail(from); err != nil {
			return err
		}
		for _, rcpt := range to {
			if err := client.Rcpt(rcpt); err != nil {
				return err
			}
		}
		w, err := client.Data()
		if err != nil {
			return err
		}
		if _, err := body.WriteTo(w); err != nil {
			_ = w.Close()
			return err
		}
		return w.Close()
	})
	if err := gomail.Send(sender, msg); err != nil {
		return err
	}

	return client.Quit()
}
