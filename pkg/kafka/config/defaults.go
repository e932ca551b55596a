package kafka_config

import "time"

const (
	// Empty disables publishing.
	DefaultKafkaBrokers = ""

	DefaultBookingsTopic = "booking-events"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false
	DefaultProducerWriteTimeout = 5 * time.Second
)
