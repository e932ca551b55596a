package repository

import (
	"context"
	"sync"

	"motobooking/pkg/model"
)

// TransactionFunc runs a read-modify-write cycle against the repository.
type TransactionFunc func(ctx context.Context) error

// BookingRepository persists the booking collection as a whole. Every
// backend loads and saves the full ordered collection; there is no
// per-record access path.
type BookingRepository interface {
	Load(ctx context.Context) ([]*model.Booking, error)
	Save(ctx context.Context, bookings []*model.Booking) error
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// txLock serializes transactions within one repository instance.
type txLock struct {
	mu sync.Mutex
}

func (l *txLock) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return fn(ctx)
}

// NextID returns one more than the largest id in bookings, or 1 for an
// empty collection.
func NextID(bookings []*model.Booking) int {
	highest := 0
	for _, b := range bookings {
		if id, ok := b.ID(); ok && id > highest {
			highest = id
		}
	}
	return highest + 1
}

// IndexOf returns the position of the first booking carrying id, or -1.
func IndexOf(bookings []*model.Booking, id int) int {
	for i, b := range bookings {
		if bid, ok := b.ID(); ok && bid == id {
			return i
		}
	}
	return -1
}
