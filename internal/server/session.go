package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/chitchat-im/chitchat/internal/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Session wraps one authenticated websocket connection. Its id is unique
// per connection, which lets the registry tell a stale disconnect from a
// live session when a user reconnects.
type Session struct {
	id          string
	conn        *websocket.Conn
	cs          *ChatServer
	log         *log.Logger
	user        types.User
	send        chan *ServerMessage
	connectedAt time.Time
	stop        chan struct{}
	stopOnce    sync.Once
}

func NewSession(user types.User, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Session {
	return &Session{
		id:          uuid.NewString(),
		conn:        conn,
		cs:          cs,
		log:         l,
		user:        user,
		send:        make(chan *ServerMessage, 256),
		connectedAt: time.Now().UTC(),
		stop:        make(chan struct{}),
	}
}

func (s *Session) User() types.User {
	return s.user
}

func (s *Session) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		s.log.Printf("write exiting for %q", s.user.Username)
	}()

	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				return
			}

			bytes, err := serializeMessage(msg)
			if err != nil {
				s.log.Println("failed to serialize message:", err)
				continue
			}

			if !s.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (s *Session) Read() {
	defer func() {
		s.conn.Close()
		s.cleanup()
		s.log.Printf("read exiting for %q", s.user.Username)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(appData string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.Println("error parsing message:", err)
			s.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.sess = s
		msg.UserId = s.user.Id
		msg.Timestamp = Now()

		switch {
		case msg.Open != nil:
			s.cs.OpenConversation(s.user.Id, msg.Open.PartnerId)
		default:
			s.queueMessage(ErrInvalidMessage(msg.Id))
		}
	}
}

// queueMessage queues msg for delivery without blocking. A full channel
// drops the message; the durable fallback is the history fetch.
func (s *Session) queueMessage(msg *ServerMessage) bool {
	select {
	case s.send <- msg:
	default:
		s.log.Printf("send channel full for %q, dropping message", s.user.Username)
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (s *Session) sendMessage(msgType int, msg []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := s.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			s.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

// stopSession is idempotent; it is called both on normal disconnect and
// when the registry evicts this session in favor of a newer connection.
func (s *Session) stopSession() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *Session) cleanup() {
	s.cs.UnregisterSession(s)
	s.stopSession()
}
