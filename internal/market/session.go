// Package market holds the trading-session gate and the live price cache
// shared by the feed pipeline and the analytics engine.
package market

import (
	"fmt"
	"time"
)

// Status describes the session state at a point in time. NextClose is nil
// while the market is closed.
type Status struct {
	IsOpen      bool       `json:"isOpen"`
	CurrentTime time.Time  `json:"currentTime"`
	NextOpen    time.Time  `json:"nextOpen"`
	NextClose   *time.Time `json:"nextClose,omitempty"`
	Message     string     `json:"message"`
}

// Session is a pure time-window predicate for the configured trading hours.
// It performs no I/O; callers inject the clock, which keeps it trivially
// testable.
type Session struct {
	startHour, startMin int
	endHour, endMin     int
	loc                 *time.Location
	startLabel          string
	endLabel            string
}

// NewSession builds a Session from "HH:MM" open/close times and an IANA
// timezone name.
func NewSession(startTime, endTime, timezone string) (*Session, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	sh, sm, err := parseClock(startTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start time: %w", err)
	}
	eh, em, err := parseClock(endTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end time: %w", err)
	}

	return &Session{
		startHour: sh, startMin: sm,
		endHour: eh, endMin: em,
		loc:        loc,
		startLabel: startTime,
		endLabel:   endTime,
	}, nil
}

func parseClock(s string) (int, int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("clock out of range: %q", s)
	}
	return h, m, nil
}

// IsOpen reports whether the market is open at the given instant.
// Open means strictly between start and end on a weekday.
func (s *Session) IsOpen(now time.Time) bool {
	local := now.In(s.loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	open := s.at(local, s.startHour, s.startMin)
	close := s.at(local, s.endHour, s.endMin)

	return local.After(open) && local.Before(close)
}

// Stat returns the detailed session status at the given instant.
func (s *Session) Stat(now time.Time) Status {
	local := now.In(s.loc)
	isOpen := s.IsOpen(now)

	st := Status{
		IsOpen:      isOpen,
		CurrentTime: local,
		NextOpen:    s.nextOpen(local),
	}

	if isOpen {
		close := s.at(local, s.endHour, s.endMin)
		st.NextClose = &close
		st.Message = fmt.Sprintf("Market is open. Closes at %s IST", s.endLabel)
	} else {
		st.Message = fmt.Sprintf("Market is closed. Opens at %s IST", s.startLabel)
	}

	return st
}

// nextOpen rolls forward from now to the next start-time instant, skipping
// weekend days.
func (s *Session) nextOpen(local time.Time) time.Time {
	next := s.at(local, s.startHour, s.startMin)
	if local.After(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// OpensAt returns the configured open time label, e.g. "09:15".
func (s *Session) OpensAt() string { return s.startLabel }

// ClosesAt returns the configured close time label, e.g. "15:30".
func (s *Session) ClosesAt() string { return s.endLabel }

func (s *Session) at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, s.loc)
}
