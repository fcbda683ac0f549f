package main

import (
	"log"

	"ai-chatbot-be/internal/config"
	"ai-chatbot-be/internal/model"
	"ai-chatbot-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	var db *gorm.DB
	var err error

	switch cfg.Database.Driver {
	case "sqlite":
		db, err = database.NewSQLite(cfg.Database.SQLitePath, true)
		if err != nil {
			log.Fatal("Error: Failed to open database:", err)
		}

	case "postgres":
		if cfg.Database.Connection == "" {
			log.Fatal("Error: DB_CONNECTION_STRING is not set")
		}
		db, err = database.NewGormDBFromDSN(cfg.Database.Connection, true)
		if err != nil {
			log.Fatal("Error: Failed to connect to database:", err)
		}

	default:
		log.Fatalf("Error: Nothing to migrate for DB_DRIVER=%s", cfg.Database.Driver)
	}

	log.Printf("Running AutoMigrate for sessions, processes and cache (%s)...", cfg.Database.Driver)

	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
