package gateway

import (
	"context"
	"strings"
	"unicode/utf8"

	"chat-gateway/model"
	"chat-gateway/notify"
)

const defaultPushTitle = "New message"

// SendMessage persists body in the chat, broadcasts it to the chat room and
// queues a push for the other participant. Only persistence failures are
// returned; push problems are logged.
func (g *Gateway) SendMessage(ctx context.Context, session *Session, chatID uint, body string) (*model.ChatMessage, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := g.validateBody(body); err != nil {
		return nil, err
	}

	chat, err := g.memberChat(ctx, session, chatID)
	if err != nil {
		return nil, err
	}

	message, err := g.persistAndBroadcast(ctx, session, chat.ID, body)
	if err != nil {
		return nil, err
	}

	g.notifyPeer(ctx, session, chat, message)
	return message, nil
}

// persistAndBroadcast holds the chat's ordering stripe so room broadcasts
// leave in the order rows were written.
func (g *Gateway) persistAndBroadcast(ctx context.Context, session *Session, chatID uint, body string) (*model.ChatMessage, error) {
	mu := g.stripe(chatID)
	mu.Lock()
	defer mu.Unlock()

	message, err := g.store.InsertMessage(ctx, chatID, session.Identity.ID, body)
	if err != nil {
		g.logger.Error("message not persisted", "chat", chatID, "sender", session.Identity.ID, "error", err)
		return nil, storeError(err, "")
	}

	delivered := g.rooms.Broadcast(ChatRoom(chatID), EventNewMessage, message)
	g.logger.Debug("message broadcast", "chat", chatID, "message", message.ID, "delivered", delivered)
	return message, nil
}

func (g *Gateway) notifyPeer(ctx context.Context, session *Session, chat *model.Chat, message *model.ChatMessage) {
	if g.dispatcher == nil {
		return
	}

	peerID := chat.Peer(session.Identity.ID)
	peer, err := g.store.FindIdentity(ctx, peerID)
	if err != nil {
		g.logger.Warn("push skipped, recipient lookup failed", "chat", chat.ID, "recipient", peerID, "error", err)
		return
	}
	if peer.PushToken == "" {
		return
	}

	title := session.Identity.Name
	if title == "" {
		title = defaultPushTitle
	}
	job := notify.NewJob(peer.PushToken, title, notify.Preview(message.Body, g.options.PreviewLength), notify.Payload{
		ChatID:   chat.ID,
		SenderID: session.Identity.ID,
	})

	if !g.dispatcher.Dispatch(job) {
		g.logger.Warn("push not queued", "job", job.ID, "chat", chat.ID, "error", ErrDispatchFailure)
	}
}

func (g *Gateway) validateBody(body string) error {
	switch {
	case strings.TrimSpace(body) == "":
		return newError(CodeValidation, "message body is empty", nil)
	case !utf8.ValidString(body):
		return newError(CodeValidation, "message body is not valid UTF-8", nil)
	case utf8.RuneCountInString(body) > g.options.MaxMessageLength:
		return newError(CodeValidation, "message body is too long", nil)
	}
	return nil
}

// History returns up to limit messages of the chat older than beforeID,
// oldest first. beforeID 0 starts from the newest message.
func (g *Gateway) History(ctx context.Context, session *Session, chatID, beforeID uint, limit int) ([]model.ChatMessage, error) {
	if _, err := g.memberChat(ctx, session, chatID); err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	messages, err := g.store.ListMessages(ctx, chatID, beforeID, limit)
	if err != nil {
		return nil, storeError(err, "")
	}
	return messages, nil
}
