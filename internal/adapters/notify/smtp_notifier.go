package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// SMTPNotifier mails organizer run reports to the mailbox owner through an
// SMTP submission endpoint.
type SMTPNotifier struct {
	address     string // host:port
	host        string
	username    string
	password    string
	from        string
	to          []string
	implicitTLS bool
	logger      *zap.Logger
}

// NewSMTPNotifier creates a new SMTP notifier. implicitTLS selects TLS from
// the first byte (port 465 style); otherwise the connection upgrades with
// STARTTLS.
func NewSMTPNotifier(address, username, password, from string, to []string, implicitTLS bool, logger *zap.Logger) *SMTPNotifier {
	host := address
	if i := strings.LastIndex(address, ":"); i >= 0 {
		host = address[:i]
	}
	return &SMTPNotifier{
		address:     address,
		host:        host,
		username:    username,
		password:    password,
		from:        from,
		to:          to,
		implicitTLS: implicitTLS,
		logger:      logger,
	}
}

// SendReport delivers one HTML report to the configured recipients.
func (n *SMTPNotifier) SendReport(ctx context.Context, subject string, htmlBody []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(n.to) == 0 {
		return fmt.Errorf("no report recipients configured")
	}

	// Compose the message
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", n.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(n.to, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.Write(htmlBody)

	if err := n.send(msg.String()); err != nil {
		return err
	}
	n.logger.Info("Report mailed",
		zap.String("subject", subject),
		zap.Strings("to", n.to))
	return nil
}

func (n *SMTPNotifier) send(msg string) error {
	var (
		c   *smtp.Client
		err error
	)
	tlsConfig := &tls.Config{ServerName: n.host}
	if n.implicitTLS {
		c, err = smtp.DialTLS(n.address, tlsConfig)
	} else {
		c, err = smtp.DialStartTLS(n.address, tlsConfig)
	}
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", n.address, err)
	}
	defer c.Close()

	if n.username != "" {
		if err := c.Auth(sasl.NewPlainClient("", n.username, n.password)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.SendMail(n.from, n.to, strings.NewReader(msg)); err != nil {
		return fmt.Errorf("sending report: %w", err)
	}
	return c.Quit()
}
