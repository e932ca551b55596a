package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	bookingserrors "motobooking/internal/bookings/errors"
	"motobooking/pkg/model"
)

const fileMode = 0o644

type fileBookingRepository struct {
	txLock
	path string
}

// NewFileBookingRepository stores the collection as a pretty-printed JSON
// array at path. The file is overwritten in place on every save.
func NewFileBookingRepository(path string) BookingRepository {
	return &fileBookingRepository{path: path}
}

func (r *fileBookingRepository) Load(ctx context.Context) ([]*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*model.Booking{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}

	var bookings []*model.Booking
	if err := json.Unmarshal(data, &bookings); err != nil {
		return nil, fmt.Errorf("%w: %w", bookingserrors.ErrCorruptStore, err)
	}
	for i, b := range bookings {
		if b == nil {
			return nil, fmt.Errorf("%w: element %d is null", bookingserrors.ErrCorruptStore, i)
		}
	}
	if bookings == nil {
		return nil, fmt.Errorf("%w: top-level value is not an array", bookingserrors.ErrCorruptStore)
	}

	return bookings, nil
}

func (r *fileBookingRepository) Save(ctx context.Context, bookings []*model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	data, err := json.MarshalIndent(bookings, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode bookings: %w", err)
	}

	if err := os.WriteFile(r.path, data, fileMode); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.path, err)
	}
	return nil
}

// Ping reports whether the data file is readable or can be created.
func (r *fileBookingRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.OpenFile(r.path, os.O_RDONLY, 0)
	if err == nil {
		return f.Close()
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	_, err = os.Stat(filepath.Dir(r.path))
	return err
}

func (r *fileBookingRepository) Close(context.Context) error {
	return nil
}
