// Package api provides the HTTP and WebSocket surface over the decision
// engine's core components.
package api

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atlas-desktop/fx-decision-engine/internal/streamhub"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// wsSink adapts one websocket connection into a streamhub.Sink. Each sink
// owns a dedicated write-pump goroutine so a slow client never blocks the
// hub's broadcast loop; Write only enqueues.
type wsSink struct {
	logger *zap.Logger
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
}

func newWSSink(logger *zap.Logger, conn *websocket.Conn) *wsSink {
	s := &wsSink{
		logger: logger,
		conn:   conn,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	go s.writePump()
	go s.readPump()
	return s
}

// Write implements streamhub.Sink. It never blocks: a full send buffer
// drops the message and closes the sink, matching the hub's
// drop-on-failure contract.
func (s *wsSink) Write(p []byte) error {
	select {
	case s.send <- p:
		return nil
	case <-s.done:
		return errSinkClosed
	default:
		s.Close()
		return errSinkClosed
	}
}

func (s *wsSink) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// readPump drains and discards inbound frames, keeping the read deadline
// alive via pong handling. This connection is push-only; the engine does
// not accept client-issued subscribe/command frames over it.
func (s *wsSink) readPump() {
	defer s.Close()

	s.conn.SetReadLimit(65536)
	s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (s *wsSink) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

var errSinkClosed = sinkClosedError{}

type sinkClosedError struct{}

func (sinkClosedError) Error() string { return "websocket sink closed" }

var _ streamhub.Sink = (*wsSink)(nil)
