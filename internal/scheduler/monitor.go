package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intraday-pulse/pulse/internal/hub"
	"github.com/intraday-pulse/pulse/internal/market"
)

// SessionMonitor polls the session gate and pushes a market-open event to
// every connected client on the closed-to-open transition. The notification
// is edge-triggered: it fires once per open, not on every poll.
type SessionMonitor struct {
	session  *market.Session
	hub      *hub.Hub
	interval time.Duration
	logger   *logrus.Logger
	now      func() time.Time

	notified bool
}

// NewSessionMonitor creates a session monitor.
func NewSessionMonitor(session *market.Session, h *hub.Hub, interval time.Duration,
	logger *logrus.Logger) *SessionMonitor {

	return &SessionMonitor{
		session:  session,
		hub:      h,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (m *SessionMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *SessionMonitor) poll() {
	isOpen := m.session.IsOpen(m.now())

	switch {
	case isOpen && !m.notified:
		m.hub.PublishAll(hub.Event{
			Type: hub.EventMarketStatus,
			Data: map[string]any{
				"isOpen":  true,
				"message": fmt.Sprintf("Market opened at %s IST", m.session.OpensAt()),
			},
		})
		m.notified = true
		m.logger.Info("Market open notification sent")

	case !isOpen && m.notified:
		m.notified = false
		m.logger.Info("Market closed")
	}
}
