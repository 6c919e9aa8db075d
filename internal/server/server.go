package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/chitchat-im/chitchat/internal/stats"
	"github.com/chitchat-im/chitchat/internal/unread"
)

// ChatServer owns the presence registry, the unread index and the delivery
// path. All session lifecycle events flow through it. Message persistence
// happens before a message ever reaches the ChatServer, so it holds no
// database handle.
type ChatServer struct {
	log      *log.Logger
	registry *Registry
	unread   unread.Store
	stats    stats.StatsProvider

	// open tracks which conversation each connected viewer currently has
	// on screen, keyed by viewer id. This is ephemeral client-reported
	// state: it only suppresses unread increments, it is never treated as
	// an authoritative "viewer has read everything" signal.
	openMu sync.Mutex
	open   map[int]int
}

func NewChatServer(logger *log.Logger, store unread.Store, su stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:      logger,
		registry: NewRegistry(),
		unread:   store,
		stats:    su,
		open:     make(map[int]int),
	}

	su.RegisterMetric(stats.ActiveSessions)
	su.RegisterMetric(stats.MessagesDelivered)
	su.RegisterMetric(stats.DeliveryDrops)
	su.RegisterMetric(stats.MessagesForwarded)

	return cs, nil
}

// RegisterSession installs sess in the registry, evicting any previous
// connection for the same user, and broadcasts the updated presence set.
func (cs *ChatServer) RegisterSession(sess *Session) {
	prev := cs.registry.Register(sess)
	if prev != nil {
		cs.log.Printf("evicting stale session for %q", prev.user.Username)
		prev.stopSession()
	} else {
		cs.stats.Incr(stats.ActiveSessions)
	}

	cs.log.Printf("registered session for %q", sess.user.Username)
	cs.broadcastPresence()
}

// UnregisterSession removes sess if it is still the live session for its
// user. Disconnects from sessions that were already replaced are ignored.
func (cs *ChatServer) UnregisterSession(sess *Session) {
	if !cs.registry.Unregister(sess) {
		return
	}

	cs.openMu.Lock()
	delete(cs.open, sess.user.Id)
	cs.openMu.Unlock()

	cs.stats.Decr(stats.ActiveSessions)
	cs.log.Printf("unregistered session for %q", sess.user.Username)
	cs.broadcastPresence()
}

// OpenConversation records the viewer's on-screen conversation and clears
// its unread counter. A zero partnerId means the viewer closed the
// conversation pane.
func (cs *ChatServer) OpenConversation(viewerId, partnerId int) {
	cs.openMu.Lock()
	if partnerId == 0 {
		delete(cs.open, viewerId)
	} else {
		cs.open[viewerId] = partnerId
	}
	cs.openMu.Unlock()

	if partnerId == 0 {
		return
	}

	if err := cs.unread.Clear(viewerId, partnerId); err != nil {
		cs.log.Printf("clear unread for viewer %d partner %d: %v", viewerId, partnerId, err)
	}
}

func (cs *ChatServer) openPartner(viewerId int) int {
	cs.openMu.Lock()
	defer cs.openMu.Unlock()

	return cs.open[viewerId]
}

func (cs *ChatServer) IsOnline(userId int) bool {
	return cs.registry.IsOnline(userId)
}

func (cs *ChatServer) OnlineUsers() []int {
	return cs.registry.Snapshot()
}

// UnreadCounts returns the viewer's per-partner unread counts.
func (cs *ChatServer) UnreadCounts(viewerId int) (map[int]int, error) {
	return cs.unread.Counts(viewerId)
}

func (cs *ChatServer) broadcastPresence() {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Presence: &Presence{
			Online: cs.registry.Snapshot(),
		},
	}

	for _, sess := range cs.registry.Sessions() {
		sess.queueMessage(msg)
	}
}

// Shutdown closes every live session and waits for their read pumps to
// unregister, or for ctx to expire.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	for _, sess := range cs.registry.Sessions() {
		sess.stopSession()
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for cs.registry.len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}
