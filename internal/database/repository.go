package database

type ChitChatRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	ListAccounts(excludeId int) ([]User, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessageByExternalId(externalId string) (Message, error)
	ListMessagesBetween(accountId, partnerId int) ([]Message, error)
	ListChatPartners(accountId int) ([]User, error)
}
