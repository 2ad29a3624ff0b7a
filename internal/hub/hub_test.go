package hub

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestHub() *Hub {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewHub(logger)
}

func drain(sub *Subscriber) []Event {
	var events []Event
	for {
		select {
		case e := <-sub.Send:
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestHubRoomIsolation(t *testing.T) {
	h := newTestHub()

	nifty := NewSubscriber("nifty-client")
	bank := NewSubscriber("bank-client")
	h.Register(nifty)
	h.Register(bank)
	h.Subscribe(nifty, "NIFTY")
	h.Subscribe(bank, "BANKNIFTY")

	h.Publish(Event{Type: EventPriceUpdate, Symbol: "BANKNIFTY", Data: map[string]any{"price": 46000.0}})

	if got := drain(nifty); len(got) != 0 {
		t.Errorf("NIFTY-only subscriber received %d BANKNIFTY events", len(got))
	}
	got := drain(bank)
	if len(got) != 1 {
		t.Fatalf("Expected 1 event for BANKNIFTY subscriber, got %d", len(got))
	}
	if got[0].Type != EventPriceUpdate || got[0].Symbol != "BANKNIFTY" {
		t.Errorf("Unexpected event: %+v", got[0])
	}
}

func TestHubPublishUnknownRoom(t *testing.T) {
	h := newTestHub()

	// Must not panic or create state
	h.Publish(Event{Type: EventPriceUpdate, Symbol: "FINNIFTY"})
}

func TestHubMarketStatusReachesEveryone(t *testing.T) {
	h := newTestHub()

	subs := []*Subscriber{NewSubscriber("a"), NewSubscriber("b"), NewSubscriber("c")}
	for _, s := range subs {
		h.Register(s)
	}
	// Only one of them joined a room
	h.Subscribe(subs[0], "NIFTY")

	h.PublishAll(Event{Type: EventMarketStatus, Data: map[string]any{"isOpen": true}})

	for _, s := range subs {
		if got := drain(s); len(got) != 1 {
			t.Errorf("Subscriber %s: expected 1 market_status event, got %d", s.ID, len(got))
		}
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	h := newTestHub()

	sub := NewSubscriber("client")
	h.Register(sub)
	h.Subscribe(sub, "NIFTY")
	h.Unsubscribe(sub, "NIFTY")

	h.Publish(Event{Type: EventPriceUpdate, Symbol: "NIFTY"})

	if got := drain(sub); len(got) != 0 {
		t.Errorf("Expected no events after unsubscribe, got %d", len(got))
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := newTestHub()

	slow := NewSubscriber("slow")
	fast := NewSubscriber("fast")
	h.Register(slow)
	h.Register(fast)
	h.Subscribe(slow, "NIFTY")
	h.Subscribe(fast, "NIFTY")

	// Overflow the slow subscriber's buffer; nobody drains it.
	for i := 0; i < cap(slow.Send)+50; i++ {
		h.Publish(Event{Type: EventPriceUpdate, Symbol: "NIFTY", Data: map[string]any{"seq": i}})
	}

	if got := len(drain(fast)); got != cap(fast.Send) {
		// fast was never drained either, so it holds exactly a full buffer
		t.Errorf("Expected fast subscriber buffer full at %d, got %d", cap(fast.Send), got)
	}
	if got := len(drain(slow)); got != cap(slow.Send) {
		t.Errorf("Expected slow subscriber to hold %d events, got %d", cap(slow.Send), got)
	}
}

func TestHubUnregisterClosesChannel(t *testing.T) {
	h := newTestHub()

	sub := NewSubscriber("client")
	h.Register(sub)
	h.Subscribe(sub, "NIFTY")
	h.Unregister(sub)

	if _, open := <-sub.Send; open {
		t.Error("Expected Send channel closed after Unregister")
	}
	if h.ClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", h.ClientCount())
	}

	// Double unregister must be safe
	h.Unregister(sub)

	// Publishing after unregister must not deliver to a closed channel
	h.Publish(Event{Type: EventPriceUpdate, Symbol: "NIFTY"})
}

func TestHubConcurrentSubscribePublish(t *testing.T) {
	h := newTestHub()
	symbols := []string{"NIFTY", "BANKNIFTY", "FINNIFTY"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := NewSubscriber("client")
			h.Register(sub)
			sym := symbols[i%len(symbols)]
			h.Subscribe(sub, sym)
			for j := 0; j < 200; j++ {
				h.Publish(Event{Type: EventPriceUpdate, Symbol: sym})
			}
			h.Unregister(sub)
		}(i)
	}
	wg.Wait()

	if h.ClientCount() != 0 {
		t.Errorf("Expected 0 clients after all unregistered, got %d", h.ClientCount())
	}
}
