package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"leadflow/internal/platform/models"
)

// MailRelayChecker performs a connect-and-authenticate handshake against
// the configured relay, then quits. No message is sent.
type MailRelayChecker struct {
	dialTimeout time.Duration

	// handshake is swappable in tests; the default runs the real SMTP dialog.
	handshake func(ctx context.Context, host string, port int, username, password string, useTLS bool, timeout time.Duration) error
}

func NewMailRelayChecker(dialTimeout time.Duration) *MailRelayChecker {
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	return &MailRelayChecker{dialTimeout: dialTimeout, handshake: smtpHandshake}
}

func (c *MailRelayChecker) Check(ctx context.Context, integ *models.Integration, _ *models.IntegrationStatus) Verdict {
	if len(integ.Config) == 0 {
		return Verdict{Status: models.StatusDisconnected, StatusText: "Not Configured", Error: "no relay configuration"}
	}

	host := configString(integ.Config, "host")
	username := configString(integ.Config, "username")
	password := configString(integ.Config, "password")
	if host == "" || username == "" || password == "" {
		return Verdict{Status: models.StatusDisconnected, StatusText: "Incomplete Config", Error: "host, username and password are required"}
	}

	port := 587
	if p, ok := integ.Config["port"].(float64); ok && p > 0 {
		port = int(p)
	}
	// STARTTLS unless explicitly switched off
	useTLS := true
	if v, ok := integ.Config["use_tls"].(bool); ok {
		useTLS = v
	}

	if err := c.handshake(ctx, host, port, username, password, useTLS, c.dialTimeout); err != nil {
		return Verdict{Status: models.StatusDisconnected, StatusText: "Connection Failed", Error: err.Error()}
	}
	return Verdict{Status: models.StatusConnected, StatusText: "Active"}
}

func smtpHandshake(ctx context.Context, host string, port int, username, password string, useTLS bool, timeout time.Duration) error {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if useTLS {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}

	if err := client.Auth(smtp.PlainAuth("", username, password, host)); err != nil {
		return err
	}
	return client.Quit()
}
