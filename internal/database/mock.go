package database

import (
	"github.com/stretchr/testify/mock"
)

type MockChitChatRepository struct {
	mock.Mock
}

func (m *MockChitChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChitChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChitChatRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChitChatRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChitChatRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChitChatRepository) ListAccounts(excludeId int) ([]User, error) {
	args := m.Called(excludeId)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockChitChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChitChatRepository) GetMessageByExternalId(externalId string) (Message, error) {
	args := m.Called(externalId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChitChatRepository) ListMessagesBetween(accountId, partnerId int) ([]Message, error) {
	args := m.Called(accountId, partnerId)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChitChatRepository) ListChatPartners(accountId int) ([]User, error) {
	args := m.Called(accountId)
	return args.Get(0).([]User), args.Error(1)
}
