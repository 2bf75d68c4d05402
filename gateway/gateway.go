// Package gateway implements the real-time chat core: handshake
// authentication, chat resolution, rooms, the message pipeline, read
// receipts and topic fan-out. It is transport agnostic; the socketio and
// router packages adapt it to Socket.IO.
package gateway

import (
	"context"
	"log/slog"
	"sync"

	"chat-gateway/model"
	"chat-gateway/notify"
)

const (
	EventNewMessage   = "new_message"
	EventMessagesRead = "messages_read_update"

	DefaultPreviewLength    = 50
	DefaultMaxMessageLength = 5000
	DefaultHistoryLimit     = 50
	MaxHistoryLimit         = 200

	orderingStripes = 64
)

// Store is the durable state the gateway reads and writes.
type Store interface {
	FindChat(ctx context.Context, chatID uint) (*model.Chat, error)
	FindChatByCanonicalPair(ctx context.Context, minID, maxID uint) (*model.Chat, error)
	InsertChat(ctx context.Context, minID, maxID uint) (*model.Chat, error)
	InsertMessage(ctx context.Context, chatID, senderID uint, body string) (*model.ChatMessage, error)
	BulkMarkRead(ctx context.Context, chatID, readerID uint) (int64, error)
	ListMessages(ctx context.Context, chatID, beforeID uint, limit int) ([]model.ChatMessage, error)
	FindIdentity(ctx context.Context, userID uint) (*model.User, error)
}

// Dispatcher accepts push jobs without blocking.
type Dispatcher interface {
	Dispatch(job notify.Job) bool
}

type Options struct {
	PreviewLength    int
	MaxMessageLength int
}

var errSessionClosed = newError(CodeUnauthenticated, "connection closed", nil)

// Session is a connection with the identity it authenticated as.
type Session struct {
	Conn     Conn
	Identity *Identity

	mu     sync.Mutex
	closed bool
}

func NewSession(conn Conn, identity *Identity) *Session {
	return &Session{Conn: conn, Identity: identity}
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Identity != nil && s.Identity.ID != 0
}

// Closed reports whether the session has been disconnected.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// enter joins room unless the session is closed. The session lock orders
// it against close, so a disconnected connection never rejoins a room.
func (s *Session) enter(rooms *Rooms, room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}
	rooms.Join(s.Conn, room)
	return nil
}

// close marks the session closed and removes it from every room, returning
// the rooms it left.
func (s *Session) close(rooms *Rooms) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	left := rooms.RoomsOf(s.Conn)
	rooms.LeaveAll(s.Conn)
	return left
}

// Gateway owns the room registry and routes client actions to the store,
// the rooms and the push dispatcher.
type Gateway struct {
	store      Store
	rooms      *Rooms
	dispatcher Dispatcher
	logger     *slog.Logger
	options    Options

	stripes [orderingStripes]sync.Mutex
}

func New(store Store, dispatcher Dispatcher, logger *slog.Logger, options Options) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if options.PreviewLength <= 0 {
		options.PreviewLength = DefaultPreviewLength
	}
	if options.MaxMessageLength <= 0 {
		options.MaxMessageLength = DefaultMaxMessageLength
	}
	logger = logger.With("component", "gateway")

	return &Gateway{
		store:      store,
		rooms:      NewRooms(logger),
		dispatcher: dispatcher,
		logger:     logger,
		options:    options,
	}
}

func (g *Gateway) Rooms() *Rooms {
	return g.rooms
}

// Disconnect tears down every room membership of the session. Later joins
// on the same session are refused.
func (g *Gateway) Disconnect(session *Session) {
	if session == nil || session.Conn == nil {
		return
	}
	rooms := session.close(g.rooms)
	g.logger.Debug("connection closed", "conn", session.Conn.ID(), "rooms", len(rooms))
}

// Join subscribes the session to a chat or topic room. Chat rooms require
// the caller to be a participant; topic rooms are open to any identity.
func (g *Gateway) Join(ctx context.Context, session *Session, room string) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}

	if chatID, ok := ParseChatRoom(room); ok {
		if _, err := g.memberChat(ctx, session, chatID); err != nil {
			return err
		}
	} else if _, ok := ParseTopicRoom(room); !ok {
		return newError(CodeValidation, "unknown room", nil)
	}

	return session.enter(g.rooms, room)
}

func (g *Gateway) Leave(session *Session, room string) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}
	g.rooms.Leave(session.Conn, room)
	return nil
}

// memberChat loads the chat and checks the session identity takes part in it.
func (g *Gateway) memberChat(ctx context.Context, session *Session, chatID uint) (*model.Chat, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if chatID == 0 {
		return nil, newError(CodeValidation, "chat id is required", nil)
	}

	chat, err := g.store.FindChat(ctx, chatID)
	if err != nil {
		return nil, storeError(err, "chat not found")
	}
	if !chat.HasParticipant(session.Identity.ID) {
		return nil, ErrNotAMember
	}
	return chat, nil
}

func (g *Gateway) stripe(chatID uint) *sync.Mutex {
	return &g.stripes[chatID%orderingStripes]
}
