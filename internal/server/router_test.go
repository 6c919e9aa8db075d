package server

import (
	"testing"

	"github.com/chitchat-im/chitchat/internal/stats"
	"github.com/chitchat-im/chitchat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliver_RecipientOnline(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", stats.ActiveSessions).Once()
	su.On("Incr", stats.MessagesDelivered).Once()
	defer su.AssertExpectations(t)

	cs := newTestChatServer(t, su)

	recipient := attachSession(cs, newTestSession(2))
	cs.RegisterSession(recipient)
	drain(recipient.send)

	msg := &types.Message{Id: "m1", SenderId: 1, RecipientId: 2, Text: "hi"}
	cs.Deliver(msg)

	event := <-recipient.send
	require.NotNil(t, event.Message, "expected message event to be pushed")
	assert.Equal(t, "hi", event.Message.Text)
	assert.Equal(t, 1, event.Message.SenderId)

	counts, err := cs.UnreadCounts(2)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[1], "expected unread count of 1 for the sender")
}

func TestDeliver_RecipientOffline(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)

	cs := newTestChatServer(t, su)

	msg := &types.Message{Id: "m1", SenderId: 1, RecipientId: 2, Text: "hi"}
	cs.Deliver(msg)

	// no push occurred (no session exists), but the unread counter is
	// correct for when the recipient reconnects
	counts, err := cs.UnreadCounts(2)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[1], "expected unread count to be recorded while offline")
}

func TestDeliver_OpenConversationSuppressesUnread(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", stats.ActiveSessions).Once()
	su.On("Incr", stats.MessagesDelivered).Once()
	defer su.AssertExpectations(t)

	cs := newTestChatServer(t, su)

	recipient := attachSession(cs, newTestSession(2))
	cs.RegisterSession(recipient)
	drain(recipient.send)

	cs.OpenConversation(2, 1)

	cs.Deliver(&types.Message{Id: "m1", SenderId: 1, RecipientId: 2, Text: "hi"})

	event := <-recipient.send
	require.NotNil(t, event.Message, "expected message to still be pushed")

	counts, err := cs.UnreadCounts(2)
	require.NoError(t, err)
	assert.Zero(t, counts[1], "expected no unread increment while conversation is open")
}

func TestDeliver_OtherConversationOpenStillCounts(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", stats.ActiveSessions).Once()
	su.On("Incr", stats.MessagesDelivered).Once()
	defer su.AssertExpectations(t)

	cs := newTestChatServer(t, su)

	recipient := attachSession(cs, newTestSession(2))
	cs.RegisterSession(recipient)
	drain(recipient.send)

	cs.OpenConversation(2, 3)

	cs.Deliver(&types.Message{Id: "m1", SenderId: 1, RecipientId: 2, Text: "hi"})

	counts, err := cs.UnreadCounts(2)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[1], "expected unread increment while a different conversation is open")
}

func TestDeliver_FullSendChannelDrops(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", stats.ActiveSessions).Once()
	su.On("Incr", stats.DeliveryDrops).Once()
	defer su.AssertExpectations(t)

	cs := newTestChatServer(t, su)

	recipient := attachSession(cs, newTestSession(2))
	recipient.send = make(chan *ServerMessage, 1)
	cs.RegisterSession(recipient)
	// the presence broadcast fills the 1-slot channel

	cs.Deliver(&types.Message{Id: "m1", SenderId: 1, RecipientId: 2, Text: "hi"})

	// the drop is absorbed; unread still counted
	counts, err := cs.UnreadCounts(2)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[1])
}

func TestDeliver_PreservesOrderPerPair(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", stats.ActiveSessions).Once()
	su.On("Incr", stats.MessagesDelivered).Times(3)
	defer su.AssertExpectations(t)

	cs := newTestChatServer(t, su)

	recipient := attachSession(cs, newTestSession(2))
	cs.RegisterSession(recipient)
	drain(recipient.send)

	for _, id := range []string{"m1", "m2", "m3"} {
		cs.Deliver(&types.Message{Id: id, SenderId: 1, RecipientId: 2, Text: id})
	}

	for _, want := range []string{"m1", "m2", "m3"} {
		event := <-recipient.send
		require.NotNil(t, event.Message)
		assert.Equal(t, want, event.Message.Id, "expected messages in persistence order")
	}
}
