/*
Package room contains the core logic of the presence server.

This file defines the Session: one live connection's state machine and its
read/write pumps. A session is created on connection accept, destroyed on
disconnect, and never persisted. A later connection is a brand-new session.
*/
package room

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"roomsync/internal/app/entity"
	"roomsync/internal/pkg/logx"
)

const (
	// timeout for writing a frame to the connection.
	writeWait = 10 * time.Second

	// maximum wait for a pong before the connection is considered dead.
	pongWait = 60 * time.Second

	// ping frequency; must be under pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maximum inbound frame size in bytes.
	maxMessageSize = 4096

	// outbound queue depth per session.
	sendQueueSize = 256
)

// Session lifecycle states. Transitions happen only on the session's own
// read goroutine, so no locking is needed around state.
type sessionState int

const (
	// stateAuthenticating: connected, waiting for the login event.
	stateAuthenticating sessionState = iota

	// stateActive: identity resolved, registered in the room.
	stateActive

	// stateClosed: terminal.
	stateClosed
)

// Session is the transient per-connection state: the channel handle and,
// once login completes, the resolved entity.
type Session struct {
	room *Room
	conn *websocket.Conn

	// state and entity are owned by the read goroutine.
	state  sessionState
	entity entity.Entity

	// sendMu guards send against close. Broadcasts and shutdown run on
	// different goroutines; an enqueue must never race the close.
	sendMu     sync.Mutex
	send       chan []byte
	sendClosed bool

	logger zerolog.Logger
}

// NewSession wraps an accepted connection. The caller starts WritePump on a
// goroutine and then runs ReadPump.
func NewSession(r *Room, conn *websocket.Conn) *Session {
	return &Session{
		room: r,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		logger: logx.Logger().With().
			Str("component", "session").
			Str("remote_addr", conn.RemoteAddr().String()).
			Logger(),
	}
}

// ReadPump drives the session state machine from inbound frames. It returns
// when the connection drops, after deregistering the session from the room.
func (s *Session) ReadPump() {
	defer s.cleanupOnDisconnect()

	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			break
		}

		s.handleInbound(raw)
	}
}

// cleanupOnDisconnect deterministically unwinds the session: membership
// deregistration and departure broadcast happen before the connection is
// released.
func (s *Session) cleanupOnDisconnect() {
	s.state = stateClosed
	s.room.Leave(context.Background(), s)

	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Connection close error during cleanup")
	}
}

// handleInbound dispatches one inbound frame according to the current state.
// Malformed frames and payloads are dropped with a log entry; the session
// keeps running.
func (s *Session) handleInbound(raw []byte) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Dropping malformed frame")
		return
	}

	ctx := context.Background()

	switch env.Type {
	case TypeLogin:
		if s.state != stateAuthenticating {
			// no re-entrant authentication once active
			s.logger.Warn().Msg("Ignoring login on active session")
			return
		}
		candidateID, err := decodeString(env.Payload)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Dropping malformed login payload")
			return
		}
		s.entity = s.room.Join(ctx, s, candidateID)
		s.state = stateActive

	case TypeMove:
		if s.state != stateActive {
			s.logger.Warn().Msg("Ignoring move before login")
			return
		}
		pos, err := decodeMove(env.Payload)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Dropping malformed move payload")
			return
		}
		s.entity = s.room.Move(ctx, s, pos)

	case TypeSay:
		if s.state != stateActive {
			s.logger.Warn().Msg("Ignoring say before login")
			return
		}
		message, err := decodeString(env.Payload)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Dropping malformed say payload")
			return
		}
		s.room.Say(ctx, s, message)

	default:
		s.logger.Warn().Str("event_type", env.Type).Msg("Dropping unsupported event type")
	}
}

// WritePump drains the outbound queue onto the connection and keeps the
// heartbeat alive. It exits when the queue is closed or a write fails.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Connection close error in write pump")
		}
	}()

	for {
		select {
		case message, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				// queue closed by the room; say goodbye
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Info().Err(err).Msg("Write failed, dropping connection")
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Info().Err(err).Msg("Ping failed, dropping connection")
				return
			}
		}
	}
}

// trySend enqueues a frame without blocking. A full queue drops the frame:
// one slow recipient must not hold up delivery to the others. A frame sent
// to an already-released session is silently dropped.
func (s *Session) trySend(message []byte) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.sendClosed {
		return
	}

	select {
	case s.send <- message:
	default:
		s.logger.Warn().Int("queue_len", len(s.send)).Msg("Send queue full, dropping frame")
	}
}

// closeSend closes the outbound queue exactly once, releasing the write
// pump. Safe to call from the room and from shutdown, concurrently with
// trySend.
func (s *Session) closeSend() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.sendClosed {
		return
	}
	s.sendClosed = true
	close(s.send)
}
