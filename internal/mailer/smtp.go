package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/fiscaldesk/pendency-service/internal/config"
)

// SMTPTransport delivers through a single configured SMTP endpoint. TLS mode
// is derived from the port: 465 is implicit TLS, everything else dials plain
// and upgrades with STARTTLS when the server offers it.
//
// deliver defaults to the real SMTP conversation; tests swap it out to
// exercise the port walk without a network.
type SMTPTransport struct {
	cfg     config.SMTPConfig
	deliver func(ctx context.Context, cfg config.SMTPConfig, port int, mode tlsMode, msg Message) error
}

func (t *SMTPTransport) Deliver(ctx context.Context, msg Message) error {
	mode := modeSTARTTLS
	if t.cfg.Port == 465 {
		mode = modeImplicitTLS
	}
	return t.deliver(ctx, t.cfg, t.cfg.Port, mode, msg)
}

// AttemptReport captures one transport attempt in diagnostic mode.
type AttemptReport struct {
	Port int    `json:"port"`
	Mode string `json:"mode"`
	OK   bool   `json:"ok"`
	Err  string `json:"error,omitempty"`
}

type tlsMode string

const (
	modeImplicitTLS tlsMode = "implicit-tls"
	modeSTARTTLS    tlsMode = "starttls"
	modePlaintext   tlsMode = "plaintext"
)

// Diagnose tries the standard submission ports in priority order and stops
// at the first success. Every attempt and its error is reported, so an
// operator can see exactly which path a provider accepts. Troubleshooting
// only; normal dispatch never falls through ports.
func (t *SMTPTransport) Diagnose(ctx context.Context, msg Message) []AttemptReport {
	attempts := []struct {
		port int
		mode tlsMode
	}{
		{465, modeImplicitTLS},
		{587, modeSTARTTLS},
		{25, modePlaintext},
	}

	reports := make([]AttemptReport, 0, len(attempts))
	for _, attempt := range attempts {
		err := t.deliver(ctx, t.cfg, attempt.port, attempt.mode, msg)
		report := AttemptReport{Port: attempt.port, Mode: string(attempt.mode), OK: err == nil}
		if err != nil {
			report.Err = err.Error()
		}
		reports = append(reports, report)
		if err == nil {
			break
		}
	}
	return reports
}

func deliverVia(ctx context.Context, cfg config.SMTPConfig, port int, mode tlsMode, msg Message) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: 15 * time.Second}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	if mode == modeImplicitTLS {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: cfg.Host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return fmt.Errorf("tls handshake %s: %w", addr, err)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake %s: %w", addr, err)
	}
	defer client.Close()

	if mode == modeSTARTTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				return fmt.Errorf("starttls %s: %w", addr, err)
			}
		}
	}

	if cfg.Username != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("auth %s: %w", addr, err)
			}
		}
	}

	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("rcpt to %s: %w", msg.To, err)
	}

	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write(buildRFC822(cfg, msg)); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildRFC822(cfg config.SMTPConfig, msg Message) []byte {
	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\nDate: %s\r\n\r\n",
		FormatRecipient(cfg.FromName, cfg.From),
		FormatRecipient(msg.ToName, msg.To),
		msg.Subject,
		time.Now().Format(time.RFC1123Z),
	)
	return []byte(headers + msg.Body)
}
