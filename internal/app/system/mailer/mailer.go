// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Email is a single outgoing message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Config describes the SMTP relay.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Mailer sends mail through an SMTP relay.
type Mailer struct {
	cfg  Config
	log  *zap.Logger
	send func(ctx context.Context, msg *gomail.Msg) error
}

// ErrNotConfigured is returned when no SMTP host is set.
var ErrNotConfigured = errors.New("mailer: smtp host not configured")

// New returns a Mailer for cfg.
func New(cfg Config, log *zap.Logger) *Mailer {
	m := &Mailer{cfg: cfg, log: log}
	m.send = m.dialAndSend
	return m
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool { return m != nil && m.cfg.Host != "" }

// Send builds a text/HTML alternative message and hands it to the relay.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := m.build(e)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", e.To, err)
	}
	return nil
}

// build assembles the message. Headers are RFC 2047 encoded and bodies
// quoted-printable, so non-ASCII organization names survive transport.
func (m *Mailer) build(e Email) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(e.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(e.Subject)
	msg.SetDate()
	msg.SetMessageIDWithValue(uuid.NewString() + "@" + m.cfg.Host)

	switch {
	case e.TextBody != "" && e.HTMLBody != "":
		msg.SetBodyString(gomail.TypeTextPlain, e.TextBody)
		msg.AddAlternativeString(gomail.TypeTextHTML, e.HTMLBody)
	case e.HTMLBody != "":
		msg.SetBodyString(gomail.TypeTextHTML, e.HTMLBody)
	default:
		msg.SetBodyString(gomail.TypeTextPlain, e.TextBody)
	}
	return msg, nil
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password),
		)
	}
	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// Dispatcher sends mail on background goroutines. Failures are logged and
// dropped; Wait blocks until in-flight sends finish.
type Dispatcher struct {
	sender  Sender
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher wraps sender. A nil sender makes Dispatch a logged no-op.
func NewDispatcher(sender Sender, log *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{sender: sender, log: log, timeout: timeout}
}

// Dispatch queues e for delivery and returns immediately.
func (d *Dispatcher) Dispatch(e Email) {
	if d == nil || d.sender == nil {
		return
	}
	if m, ok := d.sender.(*Mailer); ok && !m.Enabled() {
		d.log.Info("mail not configured; skipping send", zap.String("to", e.To), zap.String("subject", e.Subject))
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.Send(ctx, e); err != nil {
			d.log.Warn("email send failed", zap.String("to", e.To), zap.Error(err))
			return
		}
		d.log.Info("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
	}()
}

// Wait blocks until every dispatched email has been attempted or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
