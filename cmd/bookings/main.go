package main

import (
	"context"

	"motobooking/internal/bookings/events"
	"motobooking/internal/bookings/handler"
	"motobooking/internal/bookings/repository"
	"motobooking/internal/bookings/service"
	"motobooking/pkg/app"
	"motobooking/pkg/config"
	"motobooking/pkg/kafka"
	kafka_config "motobooking/pkg/kafka/config"
	kafka_middleware "motobooking/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Moto Booking service")

	bookingRepo, err := repository.New(context.Background(), cfg, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to open booking store", "backend", cfg.StorageBackend, "error", err)
	}

	publisher := initPublisher(cfg)
	bookingService := service.NewBookingService(bookingRepo, publisher, cfg.Log)
	cfg.Log.Info("Booking service initialized", "storage_backend", cfg.StorageBackend)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, cfg.Log),
		handler.NewHealthHandler(bookingRepo, cfg.Log),
		app.ShutdownHook{Name: "event publisher", Close: func(context.Context) error { return publisher.Close() }},
		app.ShutdownHook{Name: "booking store", Close: bookingRepo.Close},
	)
	serverApp.Run()
}

// initPublisher returns a Kafka-backed publisher when brokers are configured
// and a no-op publisher otherwise.
func initPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	if !kafkaCfg.Enabled() {
		cfg.Log.Info("Kafka brokers not configured, booking events disabled")
		return events.NewNoopPublisher()
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.BookingsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	return events.NewKafkaPublisher(producer, cfg.Log)
}
