package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"studyhub/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// wsSession owns the write side of one websocket. gorilla connections allow a single
// concurrent writer, so every outbound message goes through send.
type wsSession struct {
	conn       *websocket.Conn
	log        *slog.Logger
	send       chan outboundMessage
	closed     chan struct{}
	writerDone chan struct{}
	once       sync.Once
}

func newWSSession(conn *websocket.Conn, log *slog.Logger) *wsSession {
	ws := &wsSession{
		conn:       conn,
		log:        log,
		send:       make(chan outboundMessage, 16),
		closed:     make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	go ws.writeLoop()
	return ws
}

func (ws *wsSession) writeLoop() {
	defer close(ws.writerDone)
	for {
		select {
		case msg := <-ws.send:
			if err := ws.conn.WriteJSON(msg); err != nil {
				ws.log.Debug("ws write error", "err", err)
				ws.shutdown()
				// unblock the reader
				ws.conn.Close()
				return
			}
		case <-ws.closed:
			return
		}
	}
}

// push queues a message. It reports false once the session is closed.
func (ws *wsSession) push(typ string, payload any) bool {
	select {
	case ws.send <- outboundMessage{Type: typ, Payload: payload}:
		return true
	case <-ws.closed:
		return false
	}
}

// fail reports a transient error to the client. The connection stays open.
func (ws *wsSession) fail(err error) {
	ws.push("error", errorPayload{Message: err.Error()})
}

func (ws *wsSession) shutdown() {
	ws.once.Do(func() { close(ws.closed) })
}

// close stops the writer, then flushes whatever is still queued.
func (ws *wsSession) close() {
	ws.shutdown()
	<-ws.writerDone
	ws.drain()
}

func (ws *wsSession) drain() {
	for {
		select {
		case msg := <-ws.send:
			if err := ws.conn.WriteJSON(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func decodePayload(in inboundMessage, v any) error {
	if err := json.Unmarshal(in.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", in.Type, domain.ErrValidation)
	}
	return nil
}

func unsupported(typ string) error {
	return fmt.Errorf("unsupported message type %q: %w", typ, domain.ErrValidation)
}
