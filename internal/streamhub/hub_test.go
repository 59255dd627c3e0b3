package streamhub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type chanSink struct {
	mu   sync.Mutex
	msgs [][]byte
	fail bool
}

func (c *chanSink) Write(p []byte) error {
	if c.fail {
		return errors.New("sink down")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := append([]byte(nil), p...)
	c.msgs = append(c.msgs, cp)
	return nil
}

func (c *chanSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatal("condition was not met within the timeout")
	}
}

func TestSubscribe_ReceivesConnectedImmediately(t *testing.T) {
	h := New(zap.NewNop())
	defer h.Close()

	sink := &chanSink{}
	h.Subscribe(sink)

	eventually(t, func() bool { return sink.count() == 1 })
}

func TestPublish_DeliveredToAllSinks(t *testing.T) {
	h := New(zap.NewNop())
	defer h.Close()

	s1, s2 := &chanSink{}, &chanSink{}
	h.Subscribe(s1)
	h.Subscribe(s2)

	h.Publish(TopicLedger, map[string]string{"event_id": "e1"})

	eventually(t, func() bool { return s1.count() == 2 && s2.count() == 2 })
}

func TestPublish_FailingSinkIsDroppedSilently(t *testing.T) {
	h := New(zap.NewNop())
	defer h.Close()

	bad := &chanSink{fail: true}
	h.Subscribe(bad)
	if h.Count() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.Count())
	}

	h.Publish(TopicLedger, map[string]string{"event_id": "e1"})

	eventually(t, func() bool { return h.Count() == 0 })
}

func TestUnsubscribe_RemovesSink(t *testing.T) {
	h := New(zap.NewNop())
	defer h.Close()

	sink := &chanSink{}
	handle := h.Subscribe(sink)
	if h.Count() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", h.Count())
	}

	handle.Unsubscribe()
	eventually(t, func() bool { return h.Count() == 0 })
}
