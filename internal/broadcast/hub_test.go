package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func recvEvent(t *testing.T, s *Subscriber) Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroadcast_ReachesAllSubscribers(t *testing.T) {
	h := NewHub(zap.NewNop(), 4, time.Second)
	a := h.Subscribe()
	b := h.Subscribe()

	h.Broadcast(Event{Code: "SAVE10-AB12"})

	assert.Equal(t, "SAVE10-AB12", recvEvent(t, a).Code)
	assert.Equal(t, "SAVE10-AB12", recvEvent(t, b).Code)
}

func TestBroadcast_NoReplayForLateSubscribers(t *testing.T) {
	h := NewHub(zap.NewNop(), 4, time.Second)

	h.Broadcast(Event{Code: "SAVE10-AAAA"})
	late := h.Subscribe()

	select {
	case ev := <-late.Events():
		t.Fatalf("late subscriber received replayed event %q", ev.Code)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	h := NewHub(zap.NewNop(), 4, time.Second)
	s := h.Subscribe()

	h.Unsubscribe(s)
	h.Unsubscribe(s) // second removal is not an error
	h.Unsubscribe(nil)

	assert.Equal(t, 0, h.Len())
	select {
	case <-s.Done():
	default:
		t.Fatal("Done must be closed after Unsubscribe")
	}
}

func TestBroadcast_DropsStalledSubscriber(t *testing.T) {
	h := NewHub(zap.NewNop(), 1, 20*time.Millisecond)
	stalled := h.Subscribe()
	healthy := h.Subscribe()

	// Fill the stalled subscriber's buffer; it never drains.
	h.Broadcast(Event{Code: "one"})
	// Second event overflows the stalled buffer and starts the bounded retry.
	h.Broadcast(Event{Code: "two"})

	// The healthy subscriber got both events regardless.
	assert.Equal(t, "one", recvEvent(t, healthy).Code)
	assert.Equal(t, "two", recvEvent(t, healthy).Code)

	// After the send timeout the stalled subscriber is removed.
	select {
	case <-stalled.Done():
	case <-time.After(time.Second):
		t.Fatal("stalled subscriber was not dropped")
	}
	assert.Equal(t, 1, h.Len())
}

func TestBroadcast_DoesNotBlockCaller(t *testing.T) {
	h := NewHub(zap.NewNop(), 1, 5*time.Second)
	s := h.Subscribe()

	h.Broadcast(Event{Code: "one"})

	done := make(chan struct{})
	go func() {
		// Buffer is full and the timeout is long; Broadcast must still
		// return immediately.
		h.Broadcast(Event{Code: "two"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Broadcast blocked on a full subscriber")
	}

	require.Equal(t, "one", recvEvent(t, s).Code)
}

func TestShutdown_ReleasesSubscribers(t *testing.T) {
	h := NewHub(zap.NewNop(), 4, time.Second)
	a := h.Subscribe()
	b := h.Subscribe()

	h.Shutdown()

	assert.Equal(t, 0, h.Len())
	for _, s := range []*Subscriber{a, b} {
		select {
		case <-s.Done():
		case <-time.After(time.Second):
			t.Fatal("subscriber not released on shutdown")
		}
	}
}
