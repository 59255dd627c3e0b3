// Package streamhub fans freshly appended ledger/audit events out to
// subscribed observers, in-process. Its register/broadcast/ping loop is the
// same shape as a websocket hub's client registry, generalised from a
// websocket-specific client to a byte-oriented Sink.
package streamhub

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Topic is one of the fixed live-stream topics.
type Topic string

const (
	TopicConnected Topic = "connected"
	TopicPing      Topic = "ping"
	TopicLedger    Topic = "ledger"
	TopicAudit     Topic = "audit"
)

const pingInterval = 30 * time.Second

// Sink is any byte-oriented observer: a websocket connection, an in-process
// channel, a file. A Sink that returns an error on Write is dropped.
type Sink interface {
	Write(p []byte) error
}

// Handle lets a subscriber unregister itself.
type Handle struct {
	unsubscribe func()
}

// Unsubscribe removes the sink from the hub.
func (h Handle) Unsubscribe() { h.unsubscribe() }

type envelope struct {
	Topic Topic `json:"topic"`
	Data  any   `json:"data"`
}

type registration struct {
	sink Sink
	id   uint64
}

// Hub is the Live Stream Hub: a registry of sinks plus a single event loop
// goroutine serialising registration and broadcast.
type Hub struct {
	logger *zap.Logger

	register   chan registration
	unregister chan uint64
	publishCh  chan publishRequest
	stop       chan struct{}

	mu      sync.Mutex
	sinks   map[uint64]Sink
	nextID  uint64
}

type publishRequest struct {
	topic Topic
	data  any
}

// New creates a Hub and starts its event loop.
func New(logger *zap.Logger) *Hub {
	h := &Hub{
		logger:     logger.Named("streamhub"),
		register:   make(chan registration),
		unregister: make(chan uint64),
		publishCh:  make(chan publishRequest, 256),
		stop:       make(chan struct{}),
		sinks:      make(map[uint64]Sink),
	}
	go h.run()
	return h
}

// Subscribe registers sink and returns a Handle to unsubscribe it. A
// "connected" message is published to it immediately.
func (h *Hub) Subscribe(sink Sink) Handle {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.mu.Unlock()

	h.register <- registration{sink: sink, id: id}

	buf, _ := json.Marshal(envelope{Topic: TopicConnected, Data: map[string]any{"subscribed": true}})
	_ = sink.Write(buf)

	return Handle{unsubscribe: func() {
		select {
		case h.unregister <- id:
		case <-h.stop:
		}
	}}
}

// Publish serialises data once and writes it to every live sink. A sink
// whose Write fails is removed silently; this never blocks on a slow sink
// beyond one non-blocking attempt.
func (h *Hub) Publish(topic Topic, data any) {
	select {
	case h.publishCh <- publishRequest{topic: topic, data: data}:
	default:
		h.logger.Warn("publish queue full, dropping", zap.String("topic", string(topic)))
	}
}

// Count returns the number of currently registered sinks.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sinks)
}

// Close stops the hub's event loop.
func (h *Hub) Close() {
	close(h.stop)
}

func (h *Hub) run() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case reg := <-h.register:
			h.mu.Lock()
			h.sinks[reg.id] = reg.sink
			h.mu.Unlock()

		case id := <-h.unregister:
			h.mu.Lock()
			delete(h.sinks, id)
			h.mu.Unlock()

		case req := <-h.publishCh:
			h.broadcast(req.topic, req.data)

		case <-ticker.C:
			h.broadcast(TopicPing, map[string]any{"t": time.Now().UTC()})

		case <-h.stop:
			return
		}
	}
}

func (h *Hub) broadcast(topic Topic, data any) {
	buf, err := json.Marshal(envelope{Topic: topic, Data: data})
	if err != nil {
		h.logger.Error("marshal publish payload", zap.Error(err))
		return
	}

	h.mu.Lock()
	dead := make([]uint64, 0)
	for id, sink := range h.sinks {
		if err := sink.Write(buf); err != nil {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		delete(h.sinks, id)
	}
	h.mu.Unlock()
}
