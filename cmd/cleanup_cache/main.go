package main

import (
	"context"
	"log"

	"ai-chatbot-be/internal/bootstrap"
	"ai-chatbot-be/internal/config"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/pkg/cache"
)

// Forces the sweep that Get and Save otherwise run at random.
func main() {
	cfg := config.Load()

	uowFactory, closeStorage, err := bootstrap.NewRepositoryFactory(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStorage()

	ctx := context.Background()
	store := cache.NewStore(
		uowFactory.NewUnitOfWork(ctx).CacheRepository(),
		logger.NewNopLogger(),
		cache.WithCleaningProbability(0),
	)

	deleted, err := store.Sweep(ctx)
	if err != nil {
		log.Fatalf("Failed to delete expired cache entries: %v", err)
	}

	log.Printf("Deleted %d expired cache entries.", deleted)
}
