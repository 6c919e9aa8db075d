package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	ProfilePic   string    `json:"profile_pic,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Message struct {
	Id          string    `json:"id"`
	SenderId    int       `json:"sender_id"`
	RecipientId int       `json:"recipient_id"`
	Text        string    `json:"text,omitempty"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Conversation is one entry in a user's chat list: the partner plus the
// live state used to order the list.
type Conversation struct {
	Partner User `json:"partner"`
	Online  bool `json:"online"`
	Unread  int  `json:"unread"`
}
