package alert

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ne0fr0stbb/IT-Assistant/internal/config"
	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

type captureSender struct {
	mu       sync.Mutex
	subjects []string
	fail     bool
}

func (c *captureSender) Send(subject, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errSendFailed
	}
	c.subjects = append(c.subjects, subject)
	return nil
}

var errSendFailed = errors.New("send failed")

func alertConfig() config.AlertConfig {
	cfg := config.Default().Alerts
	cfg.Enabled = true
	cfg.From = "noc@example.com"
	cfg.To = []string{"admin@example.com"}
	return cfg
}

func downEvent(host string, at time.Time) types.Event {
	return types.Event{Type: types.EventDeviceDown, Host: host, Timestamp: at}
}

func TestManagerSendsOnDown(t *testing.T) {
	sender := &captureSender{}
	m := NewManager(alertConfig(), zerolog.Nop(), WithSender(sender))

	m.Record(downEvent("10.0.0.5", time.Now()))

	if len(sender.subjects) != 1 {
		t.Fatalf("expected one alert, got %d", len(sender.subjects))
	}
}

func TestManagerCooldownSuppressesRepeats(t *testing.T) {
	current := time.Unix(0, 0)
	sender := &captureSender{}
	cfg := alertConfig()
	cfg.Cooldown = 10 * time.Minute
	m := NewManager(cfg, zerolog.Nop(), WithSender(sender), WithNow(func() time.Time { return current }))

	m.Record(downEvent("10.0.0.5", current))
	current = current.Add(time.Minute)
	m.Record(downEvent("10.0.0.5", current))
	if len(sender.subjects) != 1 {
		t.Fatalf("expected cooldown to suppress repeat, got %d alerts", len(sender.subjects))
	}

	// A different host has its own cooldown window.
	m.Record(downEvent("10.0.0.6", current))
	if len(sender.subjects) != 2 {
		t.Fatalf("expected independent host cooldowns, got %d alerts", len(sender.subjects))
	}

	current = current.Add(15 * time.Minute)
	m.Record(downEvent("10.0.0.5", current))
	if len(sender.subjects) != 3 {
		t.Fatalf("expected alert after cooldown elapsed, got %d", len(sender.subjects))
	}
}

func TestManagerRecoveryAlwaysPairs(t *testing.T) {
	sender := &captureSender{}
	m := NewManager(alertConfig(), zerolog.Nop(), WithSender(sender))

	now := time.Now()
	m.Record(downEvent("10.0.0.5", now))
	m.Record(types.Event{Type: types.EventDeviceUp, Host: "10.0.0.5", Timestamp: now.Add(time.Minute)})

	if len(sender.subjects) != 2 {
		t.Fatalf("expected down+recovery pair, got %v", sender.subjects)
	}
}

func TestManagerDisabled(t *testing.T) {
	sender := &captureSender{}
	cfg := alertConfig()
	cfg.Enabled = false
	m := NewManager(cfg, zerolog.Nop(), WithSender(sender))

	m.Record(downEvent("10.0.0.5", time.Now()))
	if len(sender.subjects) != 0 {
		t.Fatalf("disabled manager must not send")
	}
}

func TestManagerIgnoresUnrelatedEvents(t *testing.T) {
	sender := &captureSender{}
	m := NewManager(alertConfig(), zerolog.Nop(), WithSender(sender))

	m.Record(types.Event{Type: types.EventQueueDrop, Host: "10.0.0.5", Timestamp: time.Now()})
	m.Record(types.Event{Type: types.EventScanStarted, Timestamp: time.Now()})
	if len(sender.subjects) != 0 {
		t.Fatalf("only device transitions should alert")
	}
}

func TestManagerSendFailureIsContained(t *testing.T) {
	sender := &captureSender{fail: true}
	m := NewManager(alertConfig(), zerolog.Nop(), WithSender(sender))

	// Must not panic or propagate.
	m.Record(downEvent("10.0.0.5", time.Now()))
}
