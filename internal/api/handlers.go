package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/chitchat-im/chitchat/internal/database"
	"github.com/chitchat-im/chitchat/internal/server"
	"github.com/chitchat-im/chitchat/internal/stats"
	"github.com/chitchat-im/chitchat/internal/types"
	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateAccountRequest struct {
	Username   string `json:"username"`
	ProfilePic string `json:"profile_pic"`
	Password   string `json:"password"`
}

type SendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

type ForwardMessageRequest struct {
	MessageId   string `json:"message_id"`
	RecipientId int    `json:"recipient_id"`
}

func (s *ChitChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func toUser(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Username:     u.Username,
		EmailAddress: u.EmailAddress,
		ProfilePic:   u.ProfilePic,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func toMessage(m database.Message) types.Message {
	return types.Message{
		Id:          m.ExternalId,
		SenderId:    m.SenderId,
		RecipientId: m.RecipientId,
		Text:        m.Text,
		Image:       m.Image,
		CreatedAt:   m.CreatedAt,
	}
}

func (s *ChitChatApp) health(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *ChitChatApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	}

	newUser, err := s.db.CreateAccount(params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, toUser(newUser))
}

func (s *ChitChatApp) updateAccount(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	curUser, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.UpdateAccountParams{
		UserId:       curUser.Id,
		Username:     req.Username,
		ProfilePic:   req.ProfilePic,
		PasswordHash: pwdHash,
	}

	dbUser, err := s.db.UpdateAccount(params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toUser(dbUser))
}

func (s *ChitChatApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toUser(user))
}

func (s *ChitChatApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := toUser(dbUser)

	token, err := s.createJwtForSession(u, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, u)
}

func (s *ChitChatApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", -time.Hour))
	w.WriteHeader(http.StatusNoContent)
}

func (s *ChitChatApp) getContacts(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUsers, err := s.db.ListAccounts(userId)
	if err != nil {
		s.log.Println("list accounts:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	contacts := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		contacts = append(contacts, toUser(u))
	}

	s.writeJson(w, http.StatusOK, contacts)
}

// getChats returns the viewer's conversation partners annotated with online
// status and unread counts, pre-sorted: online first, then unread
// descending.
func (s *ChitChatApp) getChats(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	partners, err := s.db.ListChatPartners(userId)
	if err != nil {
		s.log.Println("list chat partners:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	counts, err := s.cs.UnreadCounts(userId)
	if err != nil {
		s.log.Println("unread counts:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	convs := make([]types.Conversation, 0, len(partners))
	for _, p := range partners {
		convs = append(convs, types.Conversation{
			Partner: toUser(p),
			Online:  s.cs.IsOnline(p.Id),
			Unread:  counts[p.Id],
		})
	}

	s.writeJson(w, http.StatusOK, server.OrderConversations(convs))
}

func (s *ChitChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	partnerId, err := strconv.Atoi(r.PathValue("userId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbMessages, err := s.db.ListMessagesBetween(userId, partnerId)
	if err != nil {
		s.log.Println("list messages:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.Message, 0, len(dbMessages))
	for _, m := range dbMessages {
		messages = append(messages, toMessage(m))
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *ChitChatApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	recipientId, err := strconv.Atoi(r.PathValue("userId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, errResp := s.createMessage(userId, recipientId, req.Text, req.Image)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

// forwardMessage re-sends an existing message's content to a different
// recipient as a brand-new message attributed to the forwarder.
func (s *ChitChatApp) forwardMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req ForwardMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	original, err := s.db.GetMessageByExternalId(req.MessageId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, errResp := s.createMessage(userId, req.RecipientId, original.Text, original.Image)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.stats.Incr(stats.MessagesForwarded)
	s.writeJson(w, http.StatusCreated, msg)
}

// createMessage validates, persists and routes one new message. Delivery
// runs after persistence succeeds and never fails the request.
func (s *ChitChatApp) createMessage(senderId, recipientId int, text, image string) (*types.Message, *ApiError) {
	if text == "" && image == "" {
		return nil, NewValidationError("message must have text or an image")
	}
	if recipientId == senderId {
		return nil, NewValidationError("cannot send a message to yourself")
	}

	if _, err := s.db.GetAccountById(recipientId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewNotFoundError()
		}
		return nil, NewInternalServerError(err)
	}

	externalId, err := shortid.Generate()
	if err != nil {
		s.log.Print("generate message id:", err)
		return nil, NewInternalServerError(err)
	}

	dbMsg, err := s.db.CreateMessage(database.CreateMessageParams{
		ExternalId:  externalId,
		SenderId:    senderId,
		RecipientId: recipientId,
		Text:        text,
		Image:       image,
	})
	if err != nil {
		return nil, NewInternalServerError(err)
	}

	msg := toMessage(dbMsg)
	s.cs.Deliver(&msg)

	return &msg, nil
}

func (s *ChitChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	id, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	sess := server.NewSession(toUser(user), conn, s.cs, s.log)

	s.cs.RegisterSession(sess)
	go sess.Write()
	go sess.Read()
}
