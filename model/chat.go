package model

import "time"

// Chat is a one-to-one conversation. ParticipantAID is always the smaller id,
// so (2,5) and (5,2) land on the same row.
type Chat struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ParticipantAID uint      `gorm:"not null;uniqueIndex:idx_chat_pair,priority:1" json:"participant_a_id"`
	ParticipantBID uint      `gorm:"not null;uniqueIndex:idx_chat_pair,priority:2" json:"participant_b_id"`
	CreatedAt      time.Time `json:"created"`
}

// HasParticipant reports whether userID is one of the two parties.
func (c *Chat) HasParticipant(userID uint) bool {
	return userID != 0 && (c.ParticipantAID == userID || c.ParticipantBID == userID)
}

// Peer returns the participant that is not userID.
func (c *Chat) Peer(userID uint) uint {
	if c.ParticipantAID == userID {
		return c.ParticipantBID
	}
	return c.ParticipantAID
}

// ChatMessage is immutable apart from Read, which only moves false -> true.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    uint      `gorm:"not null;index:idx_message_chat_read,priority:1" json:"chat_id"`
	Chat      Chat      `gorm:"foreignKey:ChatID" json:"-"`
	SenderID  uint      `gorm:"not null" json:"sender_id"`
	Body      string    `gorm:"not null" json:"body"`
	Read      bool      `gorm:"not null;default:false;index:idx_message_chat_read,priority:2" json:"read"`
	CreatedAt time.Time `json:"created"`
}

// CanonicalPair orders two user ids so the smaller one comes first.
func CanonicalPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}
