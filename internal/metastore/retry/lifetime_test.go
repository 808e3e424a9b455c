package retry

import (
	"testing"
	"time"
)

func TestLifetimeAged(t *testing.T) {
	now := time.Now()

	l := newLifetime(time.Minute, false)
	l.record(now)

	if l.aged(now.Add(30 * time.Second)) {
		t.Error("Connection aged before lifetime elapsed")
	}
	if !l.aged(now.Add(time.Minute)) {
		t.Error("Connection not aged at exactly the lifetime boundary")
	}
	if !l.aged(now.Add(2 * time.Minute)) {
		t.Error("Connection not aged past the lifetime")
	}

	// Recording a reconnect resets the clock.
	l.record(now.Add(2 * time.Minute))
	if l.aged(now.Add(2*time.Minute + 30*time.Second)) {
		t.Error("Connection aged right after a recorded reconnect")
	}
}

func TestLifetimeDisabled(t *testing.T) {
	now := time.Now()

	l := newLifetime(0, false)
	l.record(now)
	if l.aged(now.Add(24 * time.Hour)) {
		t.Error("Zero lifetime must disable age-based reconnect")
	}

	l = newLifetime(-time.Second, false)
	l.record(now)
	if l.aged(now.Add(24 * time.Hour)) {
		t.Error("Negative lifetime must disable age-based reconnect")
	}
}

func TestLifetimeLocalTarget(t *testing.T) {
	now := time.Now()

	l := newLifetime(time.Millisecond, true)
	l.record(now)
	if l.aged(now.Add(24 * time.Hour)) {
		t.Error("A local target has no connection to age out")
	}
}
