package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	bookingserrors "motobooking/internal/bookings/errors"
	"motobooking/pkg/model"

	"github.com/jmoiron/sqlx"
)

const TableName = "bookings"

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var schemas = map[string]string{
	DriverSQLite: `CREATE TABLE IF NOT EXISTS bookings (
	seq INTEGER PRIMARY KEY,
	booking_id INTEGER NULL,
	document TEXT NOT NULL
)`,
	DriverMySQL: `CREATE TABLE IF NOT EXISTS bookings (
	seq INT NOT NULL PRIMARY KEY,
	booking_id BIGINT NULL,
	document LONGTEXT NOT NULL
)`,
	DriverPostgres: `CREATE TABLE IF NOT EXISTS bookings (
	seq INTEGER PRIMARY KEY,
	booking_id BIGINT NULL,
	document TEXT NOT NULL
)`,
}

type bookingRow struct {
	Seq       int           `db:"seq"`
	BookingID sql.NullInt64 `db:"booking_id"`
	Document  string        `db:"document"`
}

type sqlBookingRepository struct {
	txLock
	db *sqlx.DB
}

// NewSQLBookingRepository keeps one row per booking, ordered by seq. The
// table is created on first use.
func NewSQLBookingRepository(ctx context.Context, db *sqlx.DB) (BookingRepository, error) {
	schema, ok := schemas[db.DriverName()]
	if !ok {
		return nil, fmt.Errorf("unsupported SQL driver %q", db.DriverName())
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure %s table: %w", TableName, err)
	}

	return &sqlBookingRepository{db: db}, nil
}

func (r *sqlBookingRepository) Load(ctx context.Context) ([]*model.Booking, error) {
	var rows []bookingRow
	query := "SELECT seq, booking_id, document FROM bookings ORDER BY seq"
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}

	bookings := make([]*model.Booking, 0, len(rows))
	for _, row := range rows {
		b, err := model.DecodeBooking([]byte(row.Document))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", bookingserrors.ErrCorruptStore, row.Seq, err)
		}
		bookings = append(bookings, b)
	}

	return bookings, nil
}

// Save replaces every row inside a single SQL transaction.
func (r *sqlBookingRepository) Save(ctx context.Context, bookings []*model.Booking) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM bookings"); err != nil {
		return fmt.Errorf("failed to clear bookings: %w", err)
	}

	insert := tx.Rebind("INSERT INTO bookings (seq, booking_id, document) VALUES (?, ?, ?)")
	for i, b := range bookings {
		doc, marshalErr := json.Marshal(b)
		if marshalErr != nil {
			err = fmt.Errorf("failed to encode booking at %d: %w", i, marshalErr)
			return err
		}

		var bookingID sql.NullInt64
		if id, ok := b.ID(); ok {
			bookingID = sql.NullInt64{Int64: int64(id), Valid: true}
		}

		if _, err = tx.ExecContext(ctx, insert, i, bookingID, string(doc)); err != nil {
			return fmt.Errorf("failed to insert booking at %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bookings: %w", err)
	}
	return nil
}

func (r *sqlBookingRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *sqlBookingRepository) Close(context.Context) error {
	return r.db.Close()
}
