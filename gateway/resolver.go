package gateway

import (
	"context"
	"errors"

	"chat-gateway/database"
	"chat-gateway/model"
)

// Resolve returns the chat between two users, creating it on first contact.
// Argument order does not matter. A concurrent insert for the same pair that
// wins the race is read back and returned.
func (g *Gateway) Resolve(ctx context.Context, userA, userB uint) (*model.Chat, error) {
	if userA == 0 || userB == 0 {
		return nil, newError(CodeValidation, "user id is required", nil)
	}
	if userA == userB {
		return nil, newError(CodeValidation, "cannot open a chat with yourself", nil)
	}

	minID, maxID := model.CanonicalPair(userA, userB)

	chat, err := g.store.FindChatByCanonicalPair(ctx, minID, maxID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, storeError(err, "")
	}

	chat, err = g.store.InsertChat(ctx, minID, maxID)
	if errors.Is(err, database.ErrDuplicate) {
		chat, err = g.store.FindChatByCanonicalPair(ctx, minID, maxID)
	}
	if err != nil {
		return nil, storeError(err, "")
	}

	g.logger.Info("chat resolved", "chat", chat.ID, "a", chat.ParticipantAID, "b", chat.ParticipantBID)
	return chat, nil
}

// OpenChat resolves the chat between the session identity and otherID and
// joins the session to its room.
func (g *Gateway) OpenChat(ctx context.Context, session *Session, otherID uint) (*model.Chat, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if otherID == 0 || otherID == session.Identity.ID {
		return nil, newError(CodeValidation, "invalid chat partner", nil)
	}
	if _, err := g.store.FindIdentity(ctx, otherID); err != nil {
		return nil, storeError(err, "user not found")
	}

	chat, err := g.Resolve(ctx, session.Identity.ID, otherID)
	if err != nil {
		return nil, err
	}

	if err := session.enter(g.rooms, ChatRoom(chat.ID)); err != nil {
		return nil, err
	}
	return chat, nil
}

// storeError classifies a store error. notFound is the client message for
// ErrNotFound; an empty notFound treats it as a plain store failure.
func storeError(err error, notFound string) error {
	if notFound != "" && errors.Is(err, database.ErrNotFound) {
		return newError(CodeNotFound, notFound, err)
	}
	return newError(CodeStoreFailure, ErrStoreFailure.Message, err)
}
