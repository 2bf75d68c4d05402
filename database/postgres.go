package database

import (
	"fmt"
	"log"

	"chat-gateway/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func PostgresConnect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}
	log.Printf("connection opened to Postgres")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Printf("Postgres database migrated")
	return db, nil
}

// Migrate creates the chat tables. The users table is shared with the
// marketplace store and is only extended here.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Chat{},
		&model.ChatMessage{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
