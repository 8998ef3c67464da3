package pubsub

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	broker := New()
	defer broker.Close()

	first, cancelFirst := broker.Subscribe("jobs", 4)
	defer cancelFirst()
	second, cancelSecond := broker.Subscribe("jobs", 4)
	defer cancelSecond()

	broker.Publish("jobs", []byte("job-1"))

	for name, ch := range map[string]<-chan []byte{"first": first, "second": second} {
		select {
		case payload := <-ch:
			if string(payload) != "job-1" {
				t.Fatalf("%s payload = %q, want job-1", name, payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s subscriber did not receive", name)
		}
	}
}

func TestPublishSkipsOtherTopics(t *testing.T) {
	broker := New()
	defer broker.Close()

	ch, cancel := broker.Subscribe("completions", 1)
	defer cancel()

	broker.Publish("jobs", []byte("job-1"))
	select {
	case payload := <-ch:
		t.Fatalf("unexpected delivery %q on unrelated topic", payload)
	default:
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	broker := New()
	defer broker.Close()

	ch, cancel := broker.Subscribe("jobs", 1)
	defer cancel()

	broker.Publish("jobs", []byte("first"))
	broker.Publish("jobs", []byte("second"))

	payload := <-ch
	if string(payload) != "first" {
		t.Fatalf("payload = %q, want first", payload)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected second delivery %q, want drop on full buffer", extra)
	default:
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	broker := New()
	defer broker.Close()

	ch, cancel := broker.Subscribe("jobs", 1)
	cancel()
	// Cancel is idempotent.
	cancel()

	broker.Publish("jobs", []byte("job-1"))
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after cancel")
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	broker := New()
	ch, cancel := broker.Subscribe("jobs", 1)
	broker.Close()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after broker close")
	}
	// Cancel after close must not panic.
	cancel()
	// Publish after close is a no-op.
	broker.Publish("jobs", []byte("job-1"))
}

func TestSubscribeAfterClose(t *testing.T) {
	broker := New()
	broker.Close()
	ch, cancel := broker.Subscribe("jobs", 1)
	defer cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel when subscribing after close")
	}
}
