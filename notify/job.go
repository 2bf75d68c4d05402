// Package notify delivers best-effort push notifications on background workers.
package notify

import (
	"unicode/utf8"

	"github.com/google/uuid"
)

const ellipsis = "..."

// Payload is handed to the mobile client for deep-linking into the chat.
type Payload struct {
	ChatID   uint `json:"chatId"`
	SenderID uint `json:"senderId"`
}

// Job is a single push request. It is never persisted.
type Job struct {
	ID          string  `json:"id"`
	DeviceToken string  `json:"to"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	Payload     Payload `json:"data"`
}

func NewJob(deviceToken, title, body string, payload Payload) Job {
	return Job{
		ID:          uuid.NewString(),
		DeviceToken: deviceToken,
		Title:       title,
		Body:        body,
		Payload:     payload,
	}
}

// Preview shortens text to at most limit runes. Truncated text keeps
// limit-3 runes followed by "...".
func Preview(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
