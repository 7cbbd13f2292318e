package eventbus

import (
	"context"
	"testing"
	"time"
)

func collect(ch <-chan string, max int, timeout time.Duration) []string {
	var got []string
	deadline := time.After(timeout)
	for len(got) < max {
		select {
		case ev, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-deadline:
			return got
		}
	}
	return got
}

func TestPublishReachesEverySubscriber(t *testing.T) {
	eb := New[string]()
	defer eb.Shutdown()

	ch1, cancel1 := eb.Subscribe(context.Background())
	defer cancel1()
	ch2, cancel2 := eb.Subscribe(context.Background())
	defer cancel2()

	eb.PublishAsync("hello")

	if got := collect(ch1, 1, time.Second); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("subscriber 1 expected [hello], got %v", got)
	}
	if got := collect(ch2, 1, time.Second); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("subscriber 2 expected [hello], got %v", got)
	}
}

func TestShutdownClosesSubscriberChannels(t *testing.T) {
	eb := New[string]()
	ch, _ := eb.Subscribe(context.Background())

	eb.PublishAsync("last")
	eb.Shutdown()

	got := collect(ch, 2, time.Second)
	if len(got) != 1 || got[0] != "last" {
		t.Fatalf("expected the queued event to be delivered before close, got %v", got)
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected subscriber channel to be closed after shutdown")
	}
}

func TestPublishAfterShutdownIsIgnored(t *testing.T) {
	eb := New[string]()
	eb.Shutdown()
	eb.PublishAsync("dropped")
	eb.Shutdown()
}

func TestSubscribeAfterShutdownReturnsClosedChannel(t *testing.T) {
	eb := New[string]()
	eb.Shutdown()

	ch, cancel := eb.Subscribe(context.Background())
	defer cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected a closed channel from Subscribe after shutdown")
	}
}

func TestFullSubscriberBufferDropsInsteadOfBlocking(t *testing.T) {
	eb := NewWithBuffer[string](1)
	defer eb.Shutdown()

	ch, cancel := eb.Subscribe(context.Background())
	defer cancel()

	for i := 0; i < 50; i++ {
		eb.PublishAsync("burst")
	}

	// Drain whatever landed; the publisher must never have blocked.
	got := collect(ch, 50, 200*time.Millisecond)
	if len(got) == 0 {
		t.Fatal("expected at least one delivered event")
	}
	if len(got) == 50 {
		return
	}
	if eb.Dropped() == 0 {
		t.Fatalf("delivered %d of 50 with no drops counted", len(got))
	}
}
