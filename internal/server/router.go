package server

import (
	"github.com/chitchat-im/chitchat/internal/stats"
	"github.com/chitchat-im/chitchat/internal/types"
)

// Deliver routes a freshly persisted message: the recipient's unread
// counter is updated unless they have this conversation open, and the
// message is pushed to their live session if one exists. Deliver never
// blocks and never reports failure to the send path; a missed push is
// recovered by the recipient's next history fetch.
//
// Deliver is called on the request goroutine after persistence succeeds,
// so pushes for a single (sender, recipient) pair reach the session's send
// queue in persistence order.
func (cs *ChatServer) Deliver(msg *types.Message) {
	if cs.openPartner(msg.RecipientId) != msg.SenderId {
		if err := cs.unread.Incr(msg.RecipientId, msg.SenderId); err != nil {
			cs.log.Printf("incr unread for viewer %d partner %d: %v", msg.RecipientId, msg.SenderId, err)
		}
	}

	sess, ok := cs.registry.Get(msg.RecipientId)
	if !ok {
		return
	}

	event := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Message: msg,
	}

	if !sess.queueMessage(event) {
		cs.stats.Incr(stats.DeliveryDrops)
		cs.log.Printf("dropped delivery of %s to %q", msg.Id, sess.user.Username)
		return
	}

	cs.stats.Incr(stats.MessagesDelivered)
}
