package gateway

import "context"

// ReadUpdate is broadcast when a participant reads a chat. It carries no bodies.
type ReadUpdate struct {
	ChatID   uint `json:"chatId"`
	ReaderID uint `json:"readerId"`
}

// MarkRead flips every unread message the peer sent in the chat and tells the
// room. Nothing is broadcast when no message changed.
func (g *Gateway) MarkRead(ctx context.Context, session *Session, chatID uint) (int64, error) {
	chat, err := g.memberChat(ctx, session, chatID)
	if err != nil {
		return 0, err
	}

	affected, err := g.store.BulkMarkRead(ctx, chat.ID, session.Identity.ID)
	if err != nil {
		return 0, storeError(err, "")
	}
	if affected == 0 {
		return 0, nil
	}

	g.rooms.Broadcast(ChatRoom(chat.ID), EventMessagesRead, ReadUpdate{
		ChatID:   chat.ID,
		ReaderID: session.Identity.ID,
	})
	return affected, nil
}
