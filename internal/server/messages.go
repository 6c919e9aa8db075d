package server

import (
	"net/http"
	"time"

	"github.com/chitchat-im/chitchat/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is a signal sent by a connected client over its socket.
// Message creation happens over REST; the socket only carries ephemeral
// state such as which conversation the client has on screen.
type ClientMessage struct {
	BaseMessage
	Open   *Open    `json:"open,omitempty"`
	UserId int      `json:"-"`
	sess   *Session `json:"-"`
}

// Open reports that the client is now viewing the conversation with
// PartnerId. A zero PartnerId means no conversation is open.
type Open struct {
	PartnerId int `json:"partner_id"`
}

type ServerMessage struct {
	BaseMessage
	Response *Response      `json:"response,omitempty"`
	Message  *types.Message `json:"message,omitempty"`
	Presence *Presence      `json:"presence,omitempty"`
}

// Presence carries the full set of currently online user ids. It is pushed
// to every live session whenever a user connects or disconnects.
type Presence struct {
	Online []int `json:"online"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
