package events

import (
	"testing"
	"time"

	"campuspass/internal/domain"
)

func TestHub_PublishDeliversToAllSubscribers(t *testing.T) {
	hub := NewHub()
	sub1 := hub.Subscribe()
	sub2 := hub.Subscribe()

	hub.Publish(domain.Event{Action: domain.EventCreated, Record: "visitor", ID: "v1"})

	for i, sub := range []*domain.Subscription{sub1, sub2} {
		select {
		case e := <-sub.C:
			if e.Action != domain.EventCreated || e.Record != "visitor" || e.ID != "v1" {
				t.Fatalf("subscriber %d got unexpected event %+v", i+1, e)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive event", i+1)
		}
	}
}

func TestHub_UnsubscribeClosesChannelAndStopsDelivery(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	hub.Unsubscribe(sub)

	if _, ok := <-sub.C; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
	if got := hub.SubscriberCount(); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}

	// Publishing after unsubscribe must not panic.
	hub.Publish(domain.Event{Action: domain.EventDeleted, Record: "group", ID: "g1"})
}

func TestHub_UnsubscribeTwiceIsNoop(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	hub.Unsubscribe(nil)
}

func TestHub_PublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	hub := NewHub()
	_ = hub.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Publish(domain.Event{Action: domain.EventUpdated, Record: "attendance", ID: "a1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
