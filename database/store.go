package database

import (
	"context"
	"errors"
	"fmt"

	"chat-gateway/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store is the gorm backed persistence used by the gateway.
type Store struct {
	db         *gorm.DB
	identities *IdentityCache
}

func NewStore(db *gorm.DB, identities *IdentityCache) *Store {
	return &Store{db: db, identities: identities}
}

func (s *Store) FindChat(ctx context.Context, chatID uint) (*model.Chat, error) {
	chat := new(model.Chat)
	if err := s.db.WithContext(ctx).First(chat, chatID).Error; err != nil {
		return nil, translate(err)
	}
	return chat, nil
}

func (s *Store) FindChatByCanonicalPair(ctx context.Context, minID, maxID uint) (*model.Chat, error) {
	chat := new(model.Chat)
	err := s.db.WithContext(ctx).
		Where(&model.Chat{ParticipantAID: minID, ParticipantBID: maxID}).
		First(chat).Error
	if err != nil {
		return nil, translate(err)
	}
	return chat, nil
}

// InsertChat creates the chat for a canonical pair. When another insert for
// the same pair won the race it returns ErrDuplicate.
func (s *Store) InsertChat(ctx context.Context, minID, maxID uint) (*model.Chat, error) {
	if minID >= maxID {
		return nil, fmt.Errorf("insert chat: pair (%d,%d) is not canonical", minID, maxID)
	}

	chat := &model.Chat{ParticipantAID: minID, ParticipantBID: maxID}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(chat)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrDuplicate
	}
	return chat, nil
}

func (s *Store) InsertMessage(ctx context.Context, chatID, senderID uint, body string) (*model.ChatMessage, error) {
	message := &model.ChatMessage{
		ChatID:   chatID,
		SenderID: senderID,
		Body:     body,
		Read:     false,
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, translate(err)
	}
	return message, nil
}

// BulkMarkRead flips every unread message in the chat that readerID did not
// send, in one statement.
func (s *Store) BulkMarkRead(ctx context.Context, chatID, readerID uint) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("chat_id = ?", chatID).
		Where("sender_id <> ?", readerID).
		Where(map[string]interface{}{"read": false}).
		Update("read", true)
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}

// ListMessages returns up to limit messages older than beforeID (0 means
// newest), oldest first.
func (s *Store) ListMessages(ctx context.Context, chatID, beforeID uint, limit int) ([]model.ChatMessage, error) {
	query := s.db.WithContext(ctx).Where("chat_id = ?", chatID)
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}

	messages := []model.ChatMessage{}
	if err := query.Order("id desc").Limit(limit).Find(&messages).Error; err != nil {
		return nil, translate(err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *Store) FindIdentity(ctx context.Context, userID uint) (*model.User, error) {
	return s.identities.Fetch(ctx, userID, s.loadUser)
}

func (s *Store) UpdatePushToken(ctx context.Context, userID uint, token string) error {
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("push_token", token)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return s.identities.Invalidate(ctx, userID)
}

func (s *Store) loadUser(ctx context.Context, userID uint) (*model.User, error) {
	user := new(model.User)
	if err := s.db.WithContext(ctx).First(user, userID).Error; err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
