package service

import (
	"context"
	"errors"

	bookingserrors "motobooking/internal/bookings/errors"
	"motobooking/internal/bookings/events"
	"motobooking/internal/bookings/repository"
	apperrors "motobooking/pkg/errors"
	"motobooking/pkg/logger"
	"motobooking/pkg/model"
)

type BookingService interface {
	GetAll(ctx context.Context) ([]*model.Booking, error)
	GetByID(ctx context.Context, id int) (*model.Booking, error)
	Create(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	Replace(ctx context.Context, id int, booking *model.Booking) (*model.Booking, error)
	Patch(ctx context.Context, id int, patch *model.Booking) (*model.Booking, error)
	Delete(ctx context.Context, id int) error
}

type bookingService struct {
	repo      repository.BookingRepository
	publisher events.Publisher
	log       *logger.Logger
}

func NewBookingService(
	repo repository.BookingRepository,
	publisher events.Publisher,
	log *logger.Logger,
) BookingService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &bookingService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

func (s *bookingService) GetAll(ctx context.Context) ([]*model.Booking, error) {
	var bookings []*model.Booking
	err := s.transact(ctx, func(ctx context.Context) error {
		loaded, err := s.load(ctx)
		if err != nil {
			return err
		}
		bookings = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *bookingService) GetByID(ctx context.Context, id int) (*model.Booking, error) {
	var booking *model.Booking
	err := s.transact(ctx, func(ctx context.Context) error {
		bookings, err := s.load(ctx)
		if err != nil {
			return err
		}
		idx := repository.IndexOf(bookings, id)
		if idx < 0 {
			return bookingserrors.NotFound()
		}
		booking = bookings[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Create stores booking under the next free id. Any client-supplied id is
// overwritten in place.
func (s *bookingService) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	stored := booking.Clone()

	err := s.transact(ctx, func(ctx context.Context) error {
		bookings, err := s.load(ctx)
		if err != nil {
			return err
		}

		stored.SetID(repository.NextID(bookings))
		return s.save(ctx, append(bookings, stored))
	})
	if err != nil {
		s.log.Error("Failed to create booking", "error", err)
		return nil, err
	}

	id, _ := stored.ID()
	s.log.Info("Booking created successfully", "id", id)
	s.committed(ctx, events.Event{Type: events.BookingCreated, BookingID: id, Booking: stored})
	return stored, nil
}

// Replace swaps the whole record at id for booking, keeping its position.
func (s *bookingService) Replace(ctx context.Context, id int, booking *model.Booking) (*model.Booking, error) {
	stored := booking.Clone()
	stored.SetID(id)

	err := s.transact(ctx, func(ctx context.Context) error {
		bookings, err := s.load(ctx)
		if err != nil {
			return err
		}

		idx := repository.IndexOf(bookings, id)
		if idx < 0 {
			return bookingserrors.NotFound()
		}
		bookings[idx] = stored
		return s.save(ctx, bookings)
	})
	if err != nil {
		s.logFailure("Failed to replace booking", id, err)
		return nil, err
	}

	s.log.Info("Booking replaced successfully", "id", id)
	s.committed(ctx, events.Event{Type: events.BookingReplaced, BookingID: id, Booking: stored})
	return stored, nil
}

// Patch shallow-merges patch into the record at id. The id field always
// ends up equal to id, even when the patch tries to change it.
func (s *bookingService) Patch(ctx context.Context, id int, patch *model.Booking) (*model.Booking, error) {
	var merged *model.Booking

	err := s.transact(ctx, func(ctx context.Context) error {
		bookings, err := s.load(ctx)
		if err != nil {
			return err
		}

		idx := repository.IndexOf(bookings, id)
		if idx < 0 {
			return bookingserrors.NotFound()
		}

		merged = bookings[idx].Clone()
		merged.Merge(patch)
		merged.SetID(id)
		bookings[idx] = merged
		return s.save(ctx, bookings)
	})
	if err != nil {
		s.logFailure("Failed to patch booking", id, err)
		return nil, err
	}

	s.log.Info("Booking patched successfully", "id", id, "fields", patch.Keys())
	s.committed(ctx, events.Event{Type: events.BookingPatched, BookingID: id, Booking: merged})
	return merged, nil
}

func (s *bookingService) Delete(ctx context.Context, id int) error {
	var removed *model.Booking

	err := s.transact(ctx, func(ctx context.Context) error {
		bookings, err := s.load(ctx)
		if err != nil {
			return err
		}

		idx := repository.IndexOf(bookings, id)
		if idx < 0 {
			return bookingserrors.NotFound()
		}

		removed = bookings[idx]
		remaining := append(bookings[:idx:idx], bookings[idx+1:]...)
		return s.save(ctx, remaining)
	})
	if err != nil {
		s.logFailure("Failed to delete booking", id, err)
		return err
	}

	s.log.Info("Booking deleted successfully", "id", id)
	s.committed(ctx, events.Event{Type: events.BookingDeleted, BookingID: id, Booking: removed})
	return nil
}

// committed publishes the event for a persisted change. The store already
// holds the change, so the event goes out even when the request deadline
// passed during the save and the client was answered with a timeout.
func (s *bookingService) committed(ctx context.Context, event events.Event) {
	if err := ctx.Err(); err != nil {
		s.log.Warn("Booking change persisted after the request ended",
			"id", event.BookingID,
			"type", event.Type,
			"error", err,
		)
	}
	s.publisher.Publish(ctx, event)
}

// transact runs fn under the repository lock and maps stray errors, such as
// a cancelled context, onto application errors.
func (s *bookingService) transact(ctx context.Context, fn repository.TransactionFunc) error {
	err := s.repo.ExecuteTransaction(ctx, fn)
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	return storageError("Failed to access bookings", err)
}

func (s *bookingService) load(ctx context.Context) ([]*model.Booking, error) {
	bookings, err := s.repo.Load(ctx)
	if err != nil {
		return nil, storageError("Failed to load bookings", err)
	}
	return bookings, nil
}

func (s *bookingService) save(ctx context.Context, bookings []*model.Booking) error {
	if err := s.repo.Save(ctx, bookings); err != nil {
		return storageError("Failed to save bookings", err)
	}
	return nil
}

func (s *bookingService) logFailure(msg string, id int, err error) {
	if appErr := apperrors.AsAppError(err); appErr.Code == apperrors.CodeNotFound {
		s.log.Warn(msg, "id", id, "error", err)
		return
	}
	s.log.Error(msg, "id", id, "error", err)
}

func storageError(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Timeout("Request timeout")
	}
	return apperrors.Internal(msg, err)
}
