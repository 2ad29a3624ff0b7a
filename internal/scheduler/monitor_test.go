package scheduler

import (
	"testing"
	"time"

	"github.com/intraday-pulse/pulse/internal/hub"
)

func TestMonitorNotifiesOnceOnOpen(t *testing.T) {
	h := hub.NewHub(testLogger())
	sub := hub.NewSubscriber("test-1")
	h.Register(sub)
	defer h.Unregister(sub)

	m := NewSessionMonitor(openSession(t), h, time.Minute, testLogger())
	m.now = istNow(t, 10, 0)

	m.poll()
	m.poll()
	m.poll()

	select {
	case event := <-sub.Send:
		if event.Type != hub.EventMarketStatus {
			t.Errorf("Expected %s event, got %s", hub.EventMarketStatus, event.Type)
		}
		if open, _ := event.Data["isOpen"].(bool); !open {
			t.Error("Expected isOpen true in open notification")
		}
	default:
		t.Fatal("Expected a market status event")
	}

	select {
	case event := <-sub.Send:
		t.Errorf("Expected a single notification per open, got extra %+v", event)
	default:
	}
}

func TestMonitorRearmsAfterClose(t *testing.T) {
	h := hub.NewHub(testLogger())
	sub := hub.NewSubscriber("test-1")
	h.Register(sub)
	defer h.Unregister(sub)

	m := NewSessionMonitor(openSession(t), h, time.Minute, testLogger())

	m.now = istNow(t, 10, 0)
	m.poll()
	m.now = istNow(t, 16, 0)
	m.poll()
	m.now = istNow(t, 10, 30)
	m.poll()

	var count int
	for {
		select {
		case <-sub.Send:
			count++
			continue
		default:
		}
		break
	}
	if count != 2 {
		t.Errorf("Expected 2 open notifications across sessions, got %d", count)
	}
}

func TestMonitorSilentWhileClosed(t *testing.T) {
	h := hub.NewHub(testLogger())
	sub := hub.NewSubscriber("test-1")
	h.Register(sub)
	defer h.Unregister(sub)

	m := NewSessionMonitor(openSession(t), h, time.Minute, testLogger())
	m.now = istNow(t, 18, 0)

	m.poll()
	m.poll()

	select {
	case event := <-sub.Send:
		t.Errorf("Expected no events while closed, got %+v", event)
	default:
	}
}
