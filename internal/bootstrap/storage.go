package bootstrap

import (
	"fmt"
	"log"

	"ai-chatbot-be/internal/config"
	"ai-chatbot-be/internal/model"
	"ai-chatbot-be/internal/repository/memory"
	"ai-chatbot-be/internal/repository/unitofwork"
	"ai-chatbot-be/pkg/database"
)

// NewRepositoryFactory opens the storage backend selected by DB_DRIVER. The
// returned close function releases the connection.
func NewRepositoryFactory(cfg *config.Config) (unitofwork.RepositoryFactory, func() error, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		log.Println("[INFO] Using storage: POSTGRES")
		return unitofwork.NewRepositoryFactory(db), sqlDB.Close, nil

	case "sqlite":
		db, err := database.NewSQLite(cfg.Database.SQLitePath, cfg.App.Environment == "development")
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		if err := model.AutoMigrate(db); err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		log.Printf("[INFO] Using storage: SQLITE (%s)", cfg.Database.SQLitePath)
		return unitofwork.NewRepositoryFactory(db), sqlDB.Close, nil

	case "memory":
		log.Println("[INFO] Using storage: MEMORY (data is lost on restart)")
		return memory.NewRepositoryFactory(), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.Database.Driver)
}
