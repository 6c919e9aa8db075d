package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	ProfilePic   string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Message struct {
	Id          int
	ExternalId  string
	SenderId    int
	RecipientId int
	Text        string
	Image       string
	CreatedAt   time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	ProfilePic   string
	PasswordHash string
}

type CreateMessageParams struct {
	ExternalId  string
	SenderId    int
	RecipientId int
	Text        string
	Image       string
}
