package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chitchat-im/chitchat/internal/config"
	"github.com/chitchat-im/chitchat/internal/database"
	"github.com/chitchat-im/chitchat/internal/server"
	"github.com/chitchat-im/chitchat/internal/stats"
	"github.com/chitchat-im/chitchat/internal/testutil"
	"github.com/chitchat-im/chitchat/internal/types"
	"github.com/chitchat-im/chitchat/internal/unread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newTestApp builds an app with a real chat server (in-memory unread
// store) and a mocked repository.
func newTestApp(t *testing.T, db database.ChitChatRepository) *ChitChatApp {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return().Times(4)
	su.On("Incr", mock.Anything).Return().Maybe()
	su.On("Decr", mock.Anything).Return().Maybe()

	logger := testutil.TestLogger(t)
	cs, err := server.NewChatServer(logger, unread.NewMemoryStore(), su)
	require.NoError(t, err, "failed to create test ChatServer")

	cfg := &config.Config{
		ServerAddr: "localhost:0",
		SigningKey: []byte("test-signing-key"),
	}
	return NewChitChatApp(http.NewServeMux(), logger, cs, db, su, cfg)
}

func authedRequest(method, target string, body *bytes.Buffer, userId int) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(WithUserId(req.Context(), userId))
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func Test_health(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{name: "healthy"},
		{name: "database down", mockErr: errors.New("db error")},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChitChatRepository{}
			defer mockRepo.AssertExpectations(t)
			mockRepo.On("Ping").Return(tc.mockErr).Once()

			app := newTestApp(t, mockRepo)
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			app.health(rr, req)

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
			} else {
				assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
			}
		})
	}
}

func Test_sendMessage(t *testing.T) {
	recipient := database.User{Id: 2, Username: "bob", EmailAddress: "bob@example.com"}

	t.Run("successful send", func(t *testing.T) {
		mockRepo := &database.MockChitChatRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetAccountById", 2).Return(recipient, nil).Once()
		mockRepo.On("CreateMessage", mock.MatchedBy(func(p database.CreateMessageParams) bool {
			return p.SenderId == 1 && p.RecipientId == 2 && p.Text == "hi" && p.ExternalId != ""
		})).Return(database.Message{
			Id:          1,
			ExternalId:  "msg1",
			SenderId:    1,
			RecipientId: 2,
			Text:        "hi",
			CreatedAt:   time.Now().UTC(),
		}, nil).Once()

		app := newTestApp(t, mockRepo)

		req := authedRequest(http.MethodPost, "/api/messages/send/2", jsonBody(t, SendMessageRequest{Text: "hi"}), 1)
		req.SetPathValue("userId", "2")
		rr := httptest.NewRecorder()
		app.sendMessage(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code, "expected status code to be 201")

		var msg types.Message
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&msg))
		assert.Equal(t, "msg1", msg.Id)
		assert.Equal(t, 1, msg.SenderId)
		assert.Equal(t, 2, msg.RecipientId)
		assert.Equal(t, "hi", msg.Text)
	})

	t.Run("fails with empty content", func(t *testing.T) {
		mockRepo := &database.MockChitChatRepository{}
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo)

		req := authedRequest(http.MethodPost, "/api/messages/send/2", jsonBody(t, SendMessageRequest{}), 1)
		req.SetPathValue("userId", "2")
		rr := httptest.NewRecorder()
		app.sendMessage(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected validation error for empty message")
		mockRepo.AssertNotCalled(t, "CreateMessage", mock.Anything)
	})

	t.Run("fails with unknown recipient", func(t *testing.T) {
		mockRepo := &database.MockChitChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetAccountById", 99).Return(database.User{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)

		req := authedRequest(http.MethodPost, "/api/messages/send/99", jsonBody(t, SendMessageRequest{Text: "hi"}), 1)
		req.SetPathValue("userId", "99")
		rr := httptest.NewRecorder()
		app.sendMessage(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code, "expected 404 for unknown recipient")
		mockRepo.AssertNotCalled(t, "CreateMessage", mock.Anything)
	})

	t.Run("fails when sending to self", func(t *testing.T) {
		mockRepo := &database.MockChitChatRepository{}
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo)

		req := authedRequest(http.MethodPost, "/api/messages/send/1", jsonBody(t, SendMessageRequest{Text: "hi"}), 1)
		req.SetPathValue("userId", "1")
		rr := httptest.NewRecorder()
		app.sendMessage(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected validation error when sending to self")
	})
}

func Test_forwardMessage(t *testing.T) {
	recipient := database.User{Id: 2, Username: "bob"}

	t.Run("forwards image-only message as the forwarder", func(t *testing.T) {
		mockRepo := &database.MockChitChatRepository{}
		defer mockRepo.AssertExpectations(t)

		original := database.Message{
			Id:          1,
			ExternalId:  "orig1",
			SenderId:    3,
			RecipientId: 1,
			Image:       "data:image/png;base64,xyz",
		}
		mockRepo.On("GetMessageByExternalId", "orig1").Return(original, nil).Once()
		mockRepo.On("GetAccountById", 2).Return(recipient, nil).Once()
		mockRepo.On("CreateMessage", mock.MatchedBy(func(p database.CreateMessageParams) bool {
			return p.SenderId == 1 && p.RecipientId == 2 && p.Text == "" &&
				p.Image == original.Image && p.ExternalId != "orig1" && p.ExternalId != ""
		})).Return(database.Message{
			Id:          2,
			ExternalId:  "msg2",
			SenderId:    1,
			RecipientId: 2,
			Image:       original.Image,
			CreatedAt:   time.Now().UTC(),
		}, nil).Once()

		app := newTestApp(t, mockRepo)

		req := authedRequest(http.MethodPost, "/api/messages/forward",
			jsonBody(t, ForwardMessageRequest{MessageId: "orig1", RecipientId: 2}), 1)
		rr := httptest.NewRecorder()
		app.forwardMessage(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code, "expected status code to be 201")

		var msg types.Message
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&msg))
		assert.Equal(t, 1, msg.SenderId, "expected forwarded message to be attributed to the forwarder")
		assert.Empty(t, msg.Text)
		assert.Equal(t, original.Image, msg.Image)
	})

	t.Run("fails when original has no content", func(t *testing.T) {
		mockRepo := &database.MockChitChatRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("GetMessageByExternalId", "empty1").Return(database.Message{
			Id:         3,
			ExternalId: "empty1",
		}, nil).Once()

		app := newTestApp(t, mockRepo)

		req := authedRequest(http.MethodPost, "/api/messages/forward",
			jsonBody(t, ForwardMessageRequest{MessageId: "empty1", RecipientId: 2}), 1)
		rr := httptest.NewRecorder()
		app.forwardMessage(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "expected validation error for contentless original")
		mockRepo.AssertNotCalled(t, "CreateMessage", mock.Anything)
	})

	t.Run("fails with unknown original message", func(t *testing.T) {
		mockRepo := &database.MockChitChatRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("GetMessageByExternalId", "missing").Return(database.Message{}, sql.ErrNoRows).Once()

		app := newTestApp(t, mockRepo)

		req := authedRequest(http.MethodPost, "/api/messages/forward",
			jsonBody(t, ForwardMessageRequest{MessageId: "missing", RecipientId: 2}), 1)
		rr := httptest.NewRecorder()
		app.forwardMessage(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code, "expected 404 for unknown original message")
	})
}

func Test_getContacts(t *testing.T) {
	mockRepo := &database.MockChitChatRepository{}
	defer mockRepo.AssertExpectations(t)

	mockRepo.On("ListAccounts", 1).Return([]database.User{
		{Id: 2, Username: "bob"},
		{Id: 3, Username: "carol"},
	}, nil).Once()

	app := newTestApp(t, mockRepo)

	req := authedRequest(http.MethodGet, "/api/messages/contacts", nil, 1)
	rr := httptest.NewRecorder()
	app.getContacts(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var contacts []types.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&contacts))
	assert.Len(t, contacts, 2)
	assert.Equal(t, "bob", contacts[0].Username)
}

func Test_getMessages(t *testing.T) {
	t.Run("returns conversation history", func(t *testing.T) {
		mockRepo := &database.MockChitChatRepository{}
		defer mockRepo.AssertExpectations(t)

		mockRepo.On("ListMessagesBetween", 1, 2).Return([]database.Message{
			{Id: 1, ExternalId: "m1", SenderId: 1, RecipientId: 2, Text: "hi"},
			{Id: 2, ExternalId: "m2", SenderId: 2, RecipientId: 1, Text: "hello"},
		}, nil).Once()

		app := newTestApp(t, mockRepo)

		req := authedRequest(http.MethodGet, "/api/messages/2", nil, 1)
		req.SetPathValue("userId", "2")
		rr := httptest.NewRecorder()
		app.getMessages(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var messages []types.Message
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&messages))
		assert.Len(t, messages, 2)
		assert.Equal(t, "m1", messages[0].Id)
	})

	t.Run("fails with non-numeric partner id", func(t *testing.T) {
		app := newTestApp(t, &database.MockChitChatRepository{})

		req := authedRequest(http.MethodGet, "/api/messages/abc", nil, 1)
		req.SetPathValue("userId", "abc")
		rr := httptest.NewRecorder()
		app.getMessages(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func Test_getChats(t *testing.T) {
	mockRepo := &database.MockChitChatRepository{}
	defer mockRepo.AssertExpectations(t)

	// X offline no unread, Y online 3 unread, Z offline 5 unread
	mockRepo.On("ListChatPartners", 1).Return([]database.User{
		{Id: 10, Username: "x"},
		{Id: 20, Username: "y"},
		{Id: 30, Username: "z"},
	}, nil).Once()

	app := newTestApp(t, mockRepo)

	app.cs.RegisterSession(server.NewSession(types.User{Id: 20, Username: "y"}, nil, app.cs, app.log))

	for i := 0; i < 3; i++ {
		app.cs.Deliver(&types.Message{SenderId: 20, RecipientId: 1})
	}
	for i := 0; i < 5; i++ {
		app.cs.Deliver(&types.Message{SenderId: 30, RecipientId: 1})
	}

	req := authedRequest(http.MethodGet, "/api/messages/chats", nil, 1)
	rr := httptest.NewRecorder()
	app.getChats(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var convs []types.Conversation
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&convs))
	require.Len(t, convs, 3)
	assert.Equal(t, 20, convs[0].Partner.Id, "expected the online partner first")
	assert.True(t, convs[0].Online)
	assert.Equal(t, 3, convs[0].Unread)
	assert.Equal(t, 30, convs[1].Partner.Id, "expected higher unread count before lower")
	assert.Equal(t, 5, convs[1].Unread)
	assert.Equal(t, 10, convs[2].Partner.Id)
}
