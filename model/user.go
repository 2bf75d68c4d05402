package model

import "gorm.io/gorm"

// User is the marketplace account as seen by the chat gateway.
// Rows are owned by the marketplace CRUD layer; the gateway only reads them
// and updates the push token.
type User struct {
	gorm.Model
	Username    string  `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string  `json:"display_name"`
	Avatar      string  `json:"avatar"`
	Rating      float64 `gorm:"not null;default:0" json:"rating"`
	PushToken   string  `json:"-"`
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
