package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/ne0fr0stbb/IT-Assistant/internal/config"
	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

// Sender delivers one alert message. Split out so tests can capture mail
// instead of talking SMTP.
type Sender interface {
	Send(subject, body string) error
}

// Manager turns device up/down transition events into email alerts with a
// per-host cooldown. It plugs into the event pipeline as a Recorder.
type Manager struct {
	cfg    config.AlertConfig
	log    zerolog.Logger
	sender Sender
	now    func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

type Option func(*Manager)

func WithSender(s Sender) Option {
	return func(m *Manager) {
		if s != nil {
			m.sender = s
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(cfg config.AlertConfig, log zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		log:      log,
		sender:   &smtpSender{cfg: cfg},
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Record implements events.Recorder. Only device transitions matter here;
// everything else passes through untouched.
func (m *Manager) Record(event types.Event) {
	if !m.cfg.Enabled {
		return
	}

	switch event.Type {
	case types.EventDeviceDown:
		if !m.shouldSend(event.Host) {
			return
		}
		subject := fmt.Sprintf("Device down: %s", event.Host)
		body := fmt.Sprintf("Host %s stopped responding at %s.", event.Host, event.Timestamp.Format(time.RFC3339))
		m.deliver(event.Host, subject, body)
	case types.EventDeviceUp:
		// Recovery notices bypass the cooldown so the pair always matches.
		subject := fmt.Sprintf("Device recovered: %s", event.Host)
		body := fmt.Sprintf("Host %s is responding again as of %s.", event.Host, event.Timestamp.Format(time.RFC3339))
		m.deliver(event.Host, subject, body)
	}
}

func (m *Manager) shouldSend(host string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.lastSent[host]; ok && m.now().Sub(last) < m.cfg.Cooldown {
		return false
	}
	m.lastSent[host] = m.now()
	return true
}

func (m *Manager) deliver(host, subject, body string) {
	if err := m.sender.Send(subject, body); err != nil {
		m.log.Warn().Err(err).Str("host", host).Msg("alert email not sent")
		return
	}
	m.log.Info().Str("host", host).Str("subject", subject).Msg("alert email sent")
}

type smtpSender struct {
	cfg config.AlertConfig
}

func (s *smtpSender) Send(subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("alert from address: %w", err)
	}
	if err := msg.To(s.cfg.To...); err != nil {
		return fmt.Errorf("alert recipients: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSend(msg)
}
