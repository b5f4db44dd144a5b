package db

import (
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"chat-relay-backend/internal/chat"
)

// Connect opens the mysql connection and runs automigration.
func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	return gdb
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&chat.Session{}, &chat.Message{}, &chat.ModelConfig{})
}
