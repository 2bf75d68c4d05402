package router

import (
	"context"
	"log/slog"
	"time"

	"chat-gateway/gateway"
	"chat-gateway/socketio"

	"github.com/zishang520/socket.io/v2/socket"
)

const (
	eventTimeout   = 10 * time.Second
	eventQueueSize = 32
)

// Client events.
const (
	EventOpenChat      = "open_chat_with_user"
	EventJoinChat      = "join_chat"
	EventLeaveRoom     = "leave_room"
	EventSendMessage   = "send_message"
	EventMarkRead      = "mark_messages_read"
	EventFetchMessages = "fetch_messages"
)

// Response is the acknowledgment payload of every client event.
type Response struct {
	Status  string       `json:"status"`
	Code    gateway.Code `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data"`
}

func success(data any) Response {
	return Response{Status: "success", Data: data}
}

func failure(err error) Response {
	return Response{Status: "error", Code: gateway.CodeOf(err), Message: gateway.MessageOf(err)}
}

// socketConn adapts a Socket.IO socket to gateway.Conn.
type socketConn struct {
	client *socket.Socket
}

func (c socketConn) ID() string {
	return string(c.client.Id())
}

func (c socketConn) Emit(event string, payload any) error {
	c.client.Emit(event, payload)
	return nil
}

func Socket(server *socket.Server, gw *gateway.Gateway, logger *slog.Logger) {
	server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)

		identity, ok := socketio.Identity(client)
		if !ok {
			client.Disconnect(true)
			return
		}

		h := newSocketHandler(gw, gateway.NewSession(socketConn{client: client}, identity),
			logger.With("conn", string(client.Id()), "user", identity.ID))
		h.logger.Debug("connection authenticated")

		// OnAny listeners run on the packet path in arrival order, unlike On
		// listeners which the library starts on a goroutine per event.
		client.OnAny(h.dispatch)
		client.On("disconnect", func(...interface{}) {
			h.close()
		})
	})
}

type action func(ctx context.Context, args []any) (any, error)

type socketHandler struct {
	gateway *gateway.Gateway
	session *gateway.Session
	logger  *slog.Logger
	actions map[string]action
	queue   *eventQueue
}

func newSocketHandler(gw *gateway.Gateway, session *gateway.Session, logger *slog.Logger) *socketHandler {
	h := &socketHandler{
		gateway: gw,
		session: session,
		logger:  logger,
		queue:   newEventQueue(eventQueueSize),
	}
	h.actions = map[string]action{
		EventOpenChat:      h.openChat,
		EventJoinChat:      h.joinChat,
		EventLeaveRoom:     h.leaveRoom,
		EventSendMessage:   h.sendMessage,
		EventMarkRead:      h.markRead,
		EventFetchMessages: h.fetchMessages,
	}
	return h
}

// dispatch queues an inbound event. Events of one connection run one at a
// time in the order they arrived.
func (h *socketHandler) dispatch(raw ...interface{}) {
	if len(raw) == 0 {
		return
	}
	event, _ := raw[0].(string)
	run, ok := h.actions[event]
	if !ok {
		h.logger.Debug("unknown event", "event", event)
		return
	}

	args := raw[1:]
	if !h.queue.push(func() { h.handle(run)(args...) }) {
		h.logger.Debug("event after disconnect dropped", "event", event)
	}
}

// close tears the session down once every queued event has run.
func (h *socketHandler) close() {
	h.queue.close(func() {
		h.gateway.Disconnect(h.session)
	})
}

// handle runs an action and answers through the ack callback when the client sent one.
func (h *socketHandler) handle(run action) func(...interface{}) {
	return func(raw ...interface{}) {
		args, ack := splitAck(raw)

		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()

		data, err := run(ctx, args)
		if err != nil {
			h.logger.Debug("event failed", "code", gateway.CodeOf(err), "error", err)
			ack(failure(err))
			return
		}
		ack(success(data))
	}
}

func (h *socketHandler) openChat(ctx context.Context, args []any) (any, error) {
	otherID, ok := uintArg(arg(args, 0, "userId"))
	if !ok {
		return nil, invalid("user id is required")
	}
	chat, err := h.gateway.OpenChat(ctx, h.session, otherID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"chat": chat}, nil
}

func (h *socketHandler) joinChat(ctx context.Context, args []any) (any, error) {
	room, ok := roomArg(arg(args, 0, "room"))
	if !ok {
		room, ok = roomArg(arg(args, 0, "chatId"))
	}
	if !ok {
		return nil, invalid("room is required")
	}
	if err := h.gateway.Join(ctx, h.session, room); err != nil {
		return nil, err
	}
	return map[string]any{"room": room}, nil
}

func (h *socketHandler) leaveRoom(_ context.Context, args []any) (any, error) {
	room, ok := roomArg(arg(args, 0, "room"))
	if !ok {
		return nil, invalid("room is required")
	}
	if err := h.gateway.Leave(h.session, room); err != nil {
		return nil, err
	}
	return map[string]any{"room": room}, nil
}

func (h *socketHandler) sendMessage(ctx context.Context, args []any) (any, error) {
	chatID, ok := uintArg(arg(args, 0, "chatId"))
	if !ok {
		return nil, invalid("chat id is required")
	}
	body, _ := arg(args, 1, "body").(string)

	message, err := h.gateway.SendMessage(ctx, h.session, chatID, body)
	if err != nil {
		return nil, err
	}
	return map[string]any{"message": message}, nil
}

func (h *socketHandler) markRead(ctx context.Context, args []any) (any, error) {
	chatID, ok := uintArg(arg(args, 0, "chatId"))
	if !ok {
		return nil, invalid("chat id is required")
	}
	affected, err := h.gateway.MarkRead(ctx, h.session, chatID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"chatId": chatID, "updated": affected}, nil
}

func (h *socketHandler) fetchMessages(ctx context.Context, args []any) (any, error) {
	chatID, ok := uintArg(arg(args, 0, "chatId"))
	if !ok {
		return nil, invalid("chat id is required")
	}
	before, _ := uintArg(arg(args, 1, "before"))
	limit, _ := uintArg(arg(args, 2, "limit"))

	messages, err := h.gateway.History(ctx, h.session, chatID, before, int(limit))
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func invalid(message string) error {
	return &gateway.Error{Code: gateway.CodeValidation, Message: message}
}
