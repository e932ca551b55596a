package repository

import (
	"context"
	"path/filepath"
	"testing"

	"motobooking/pkg/config"
	"motobooking/pkg/logger"
)

func TestNew_FileBackend(t *testing.T) {
	cfg := &config.Config{
		StorageBackend: config.StorageFile,
		DataFile:       filepath.Join(t.TempDir(), "data.json"),
	}

	repo, err := New(context.Background(), cfg, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestNew_SQLiteBackend(t *testing.T) {
	cfg := &config.Config{
		StorageBackend:   config.StorageSQLite,
		SQLDSN:           filepath.Join(t.TempDir(), "bookings.db"),
		MongoConnTimeout: config.DefaultMongoConnTimeout,
	}

	repo, err := New(context.Background(), cfg, logger.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer repo.Close(context.Background())

	if err := repo.Save(context.Background(), mustBookings(t, `{"id":1}`)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := repo.Load(context.Background())
	if err != nil || len(loaded) != 1 {
		t.Errorf("load = %v, %v", loaded, err)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := &config.Config{StorageBackend: "redis"}

	if _, err := New(context.Background(), cfg, logger.Discard()); err == nil {
		t.Error("expected error for unknown backend")
	}
}
