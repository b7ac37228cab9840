package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/fiscaldesk/pendency-service/internal/config"
)

// Message is a rendered notification ready for the outbound transport.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Result is the explicit delivery outcome. Callers decide whether a failed
// delivery is worth more than a warning; a state transition or ledger write
// that already happened is never rolled back because of it.
type Result struct {
	Delivered bool
	Err       error
}

func Delivered() Result       { return Result{Delivered: true} }
func Failed(err error) Result { return Result{Err: err} }

// Transport delivers a single message. The production implementation speaks
// SMTP; tests substitute an in-memory one.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

type Mailer struct {
	transport Transport
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// New builds the dispatch front door. sendsPerMinute bounds bulk sends so
// batches do not trip third-party provider rate limits.
func New(transport Transport, sendsPerMinute int, log zerolog.Logger) *Mailer {
	interval := time.Minute / time.Duration(sendsPerMinute)
	return &Mailer{
		transport: transport,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		log:       log.With().Str("component", "mailer").Logger(),
	}
}

// Send makes a single delivery attempt. Failure is logged and downgraded to
// a Result the caller can inspect; it never propagates as an error.
func (m *Mailer) Send(ctx context.Context, msg Message) Result {
	if err := m.transport.Deliver(ctx, msg); err != nil {
		m.log.Warn().
			Err(err).
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Msg("delivery failed")
		return Failed(err)
	}
	return Delivered()
}

// SendBulk dispatches messages sequentially, pausing on the shared limiter
// between consecutive sends. Returns delivered and failed counts.
func (m *Mailer) SendBulk(ctx context.Context, msgs []Message) (delivered, failed int) {
	for i, msg := range msgs {
		if i > 0 {
			if err := m.limiter.Wait(ctx); err != nil {
				failed += len(msgs) - i
				m.log.Warn().Err(err).Int("remaining", len(msgs)-i).Msg("bulk send aborted")
				return delivered, failed
			}
		}
		if m.Send(ctx, msg).Delivered {
			delivered++
		} else {
			failed++
		}
	}
	return delivered, failed
}

// FormatRecipient renders "Name <addr>" for the SMTP headers.
func FormatRecipient(name, addr string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}

// NewSMTPTransport wires the production transport from config.
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, deliver: deliverVia}
}
