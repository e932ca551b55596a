package repository

import (
	"context"
	"fmt"

	"motobooking/pkg/client"
	"motobooking/pkg/config"
	"motobooking/pkg/logger"
)

// New opens the booking store selected by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (BookingRepository, error) {
	switch cfg.StorageBackend {
	case config.StorageFile:
		log.Info("Using file booking store", "path", cfg.DataFile)
		return NewFileBookingRepository(cfg.DataFile), nil

	case config.StorageSQLite, config.StorageMySQL, config.StoragePostgres:
		db, err := client.NewSQL(log, sqlDriver(cfg.StorageBackend), cfg.SQLDSN, cfg.MongoConnTimeout)
		if err != nil {
			return nil, err
		}
		repo, err := NewSQLBookingRepository(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return repo, nil

	case config.StorageMongo:
		mongoClient, err := client.NewMongo(log, cfg.MongoURI, cfg.MongoConnTimeout)
		if err != nil {
			return nil, err
		}
		return NewMongoBookingRepository(mongoClient, cfg.MongoDatabaseName, cfg.RequestTimeout, cfg.MongoTransactions), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func sqlDriver(backend string) string {
	switch backend {
	case config.StorageMySQL:
		return DriverMySQL
	case config.StoragePostgres:
		return DriverPostgres
	default:
		return DriverSQLite
	}
}
