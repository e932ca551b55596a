package main

import (
	"context"
	"time"

	"motobooking/internal/bookings/repository"
	mongoMigration "motobooking/internal/migrations/mongo"
	"motobooking/pkg/client"
	"motobooking/pkg/config"
)

const JobName = "booking-store-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.Log.Info("Starting booking store migration", "storage_backend", cfg.StorageBackend)

	switch cfg.StorageBackend {
	case config.StorageMongo:
		mongoClient, err := client.NewMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
		if err != nil {
			cfg.Log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		defer mongoClient.Disconnect(context.Background())

		if err := mongoMigration.RunMigration(ctx, mongoClient, cfg.MongoDatabaseName, cfg.Log); err != nil {
			cfg.Log.Fatal("Migration failed", "error", err)
		}

	case config.StorageSQLite, config.StorageMySQL, config.StoragePostgres:
		// Opening the repository creates the bookings table.
		repo, err := repository.New(ctx, cfg, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Migration failed", "error", err)
		}
		defer repo.Close(context.Background())

	default:
		cfg.Log.Info("Nothing to migrate for storage backend", "storage_backend", cfg.StorageBackend)
		return
	}

	cfg.Log.Info("Migration completed successfully")
}
