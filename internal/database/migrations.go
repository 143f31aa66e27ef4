package database

import (
	"log"
	"log/slog"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/iyunix/go-docchat/internal/domain"
)

// GetMigrator returns the schema migrator for chats and messages.
func GetMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202610010001_chats_and_messages",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.Chat{}, &domain.Message{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.Message{}, &domain.Chat{})
			},
		},
		{
			ID: "202610080001_messages_chat_created_idx",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages (chat_id, created_at, id)").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_messages_chat_created").Error
			},
		},
	})

	migrator.InitSchema(func(tx *gorm.DB) error {
		log.Println("clean database detected, running full schema initialization")

		if name := tx.Dialector.Name(); name == "sqlite" || name == "sqlite3" {
			if err := tx.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
				slog.Error("error enabling foreign keys for SQLite", "error", err)
			}
		}

		if err := tx.AutoMigrate(&domain.Chat{}, &domain.Message{}); err != nil {
			return err
		}
		return tx.Exec("CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages (chat_id, created_at, id)").Error
	})

	return migrator
}
