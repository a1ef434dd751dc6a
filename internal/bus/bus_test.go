package bus

import (
	"testing"
	"time"
)

func TestPublishDeliversToMultipleSubscribersOfSameFlight(t *testing.T) {
	b := New()
	subA := b.Subscribe(1)
	subB := b.Subscribe(1)
	defer subA.Close()
	defer subB.Close()

	b.Publish(Event{FlightID: 1, Status: "Reservation updated"})

	for _, sub := range []*Subscription{subA, subB} {
		select {
		case ev := <-sub.Events():
			if ev.FlightID != 1 {
				t.Fatalf("got flight_id %d, want 1", ev.FlightID)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the broadcast event")
		}
	}
}

func TestPublishDoesNotCrossFlightIDs(t *testing.T) {
	b := New()
	sub := b.Subscribe(1)
	defer sub.Close()

	b.Publish(Event{FlightID: 2, Status: "Reservation updated"})

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event for unrelated flight_id: %+v", ev)
	case <-time.After(50 * time.Millisecond):
		// expected: no cross-talk between flight_ids
	}
}

func TestClosedSubscriptionStopsReceiving(t *testing.T) {
	b := New()
	sub := b.Subscribe(1)
	sub.Close()

	b.Publish(Event{FlightID: 1, Status: "Reservation updated"})

	select {
	case ev := <-sub.Events():
		t.Fatalf("closed subscription received an event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
		// expected
	}
}

func TestPublishDropsWhenSubscriberQueueIsFull(t *testing.T) {
	b := New()
	sub := b.Subscribe(1)
	defer sub.Close()

	for i := 0; i < subscriberCapacity+10; i++ {
		b.Publish(Event{FlightID: 1, Status: "Reservation updated"})
	}

	drained := 0
	for {
		select {
		case <-sub.Events():
			drained++
		default:
			if drained != subscriberCapacity {
				t.Fatalf("drained %d events, want exactly the %d-capacity queue full", drained, subscriberCapacity)
			}
			return
		}
	}
}
