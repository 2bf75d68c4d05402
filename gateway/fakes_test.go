package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"chat-gateway/database"
	"chat-gateway/model"
	"chat-gateway/notify"

	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type emitted struct {
	Event   string
	Payload any
}

type fakeConn struct {
	id  string
	err error

	mu     sync.Mutex
	events []emitted
}

func newConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Emit(event string, payload any) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emitted{Event: event, Payload: payload})
	return nil
}

func (c *fakeConn) received(event string) []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []emitted
	for _, e := range c.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// memStore mimics the postgres store: a unique canonical pair and
// conditional bulk updates.
type memStore struct {
	mu       sync.Mutex
	chats    map[uint]*model.Chat
	pairs    map[[2]uint]uint
	messages []*model.ChatMessage
	users    map[uint]*model.User
	nextChat uint

	// staleFinds makes that many pair lookups miss, as if another insert
	// had not been committed yet.
	staleFinds  int
	insertErr   error
	identityErr error
	dupInserts  int
	insertDelay time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		chats: make(map[uint]*model.Chat),
		pairs: make(map[[2]uint]uint),
		users: make(map[uint]*model.User),
	}
}

func (s *memStore) addUser(id uint, name, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &model.User{Username: name, DisplayName: name, PushToken: token}
	user.ID = id
	s.users[id] = user
}

func (s *memStore) addChat(id, a, b uint) *model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, b = model.CanonicalPair(a, b)
	chat := &model.Chat{ID: id, ParticipantAID: a, ParticipantBID: b, CreatedAt: time.Now()}
	s.chats[id] = chat
	s.pairs[[2]uint{a, b}] = id
	if id > s.nextChat {
		s.nextChat = id
	}
	return chat
}

func (s *memStore) addMessage(chatID, senderID uint, body string) *model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	message := &model.ChatMessage{ID: uint(len(s.messages) + 1), ChatID: chatID, SenderID: senderID, Body: body}
	s.messages = append(s.messages, message)
	return message
}

func (s *memStore) chatCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

func (s *memStore) messagesIn(chatID uint) []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ChatMessage
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, *m)
		}
	}
	return out
}

func (s *memStore) FindChat(_ context.Context, chatID uint) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := *chat
	return &c, nil
}

func (s *memStore) FindChatByCanonicalPair(_ context.Context, minID, maxID uint) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleFinds > 0 {
		s.staleFinds--
		return nil, database.ErrNotFound
	}
	id, ok := s.pairs[[2]uint{minID, maxID}]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := *s.chats[id]
	return &c, nil
}

func (s *memStore) InsertChat(_ context.Context, minID, maxID uint) (*model.Chat, error) {
	if s.insertDelay > 0 {
		time.Sleep(s.insertDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if minID >= maxID {
		return nil, errors.New("pair is not canonical")
	}
	if _, ok := s.pairs[[2]uint{minID, maxID}]; ok {
		s.dupInserts++
		return nil, database.ErrDuplicate
	}
	s.nextChat++
	chat := &model.Chat{ID: s.nextChat, ParticipantAID: minID, ParticipantBID: maxID, CreatedAt: time.Now()}
	s.chats[chat.ID] = chat
	s.pairs[[2]uint{minID, maxID}] = chat.ID
	c := *chat
	return &c, nil
}

func (s *memStore) InsertMessage(_ context.Context, chatID, senderID uint, body string) (*model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	message := &model.ChatMessage{
		ID:        uint(len(s.messages) + 1),
		ChatID:    chatID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	s.messages = append(s.messages, message)
	m := *message
	return &m, nil
}

func (s *memStore) BulkMarkRead(_ context.Context, chatID, readerID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected int64
	for _, m := range s.messages {
		if m.ChatID == chatID && m.SenderID != readerID && !m.Read {
			m.Read = true
			affected++
		}
	}
	return affected, nil
}

func (s *memStore) ListMessages(_ context.Context, chatID, beforeID uint, limit int) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ChatMessage
	for i := len(s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := s.messages[i]
		if m.ChatID == chatID && (beforeID == 0 || m.ID < beforeID) {
			out = append([]model.ChatMessage{*m}, out...)
		}
	}
	return out, nil
}

func (s *memStore) FindIdentity(_ context.Context, userID uint) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identityErr != nil {
		return nil, s.identityErr
	}
	user, ok := s.users[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	u := *user
	return &u, nil
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(job notify.Job) bool {
	return m.Called(job).Bool(0)
}

func session(conn *fakeConn, id uint, name string) *Session {
	return NewSession(conn, &Identity{ID: id, Name: name})
}
