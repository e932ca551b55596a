package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bookingserrors "motobooking/internal/bookings/errors"
	mongotx "motobooking/pkg/db/mongo"
	"motobooking/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

type bookingDocument struct {
	Position  int    `bson:"position"`
	BookingID *int   `bson:"booking_id"`
	Fields    bson.D `bson:"fields"`
}

type mongoBookingRepository struct {
	txLock
	client       *mongo.Client
	collection   *mongo.Collection
	txManager    mongotx.TransactionManager
	writeTimeout time.Duration
}

// NewMongoBookingRepository stores one document per booking. With
// transactional set, each save runs in a multi-document transaction.
func NewMongoBookingRepository(client *mongo.Client, databaseName string, writeTimeout time.Duration, transactional bool) BookingRepository {
	txManager := mongotx.NewDirectManager()
	if transactional {
		txManager = mongotx.NewTransactionManager(client)
	}

	return &mongoBookingRepository{
		client:       client,
		collection:   client.Database(databaseName).Collection(CollectionName),
		txManager:    txManager,
		writeTimeout: writeTimeout,
	}
}

// withTimeout bounds ctx by the repository write timeout unless the caller
// already set an earlier deadline.
func (r *mongoBookingRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.writeTimeout <= 0 {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < r.writeTimeout {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, r.writeTimeout)
}

func (r *mongoBookingRepository) Load(ctx context.Context) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: %w", bookingserrors.ErrCorruptStore, err)
	}

	bookings := make([]*model.Booking, 0, len(docs))
	for _, doc := range docs {
		b, err := fromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: position %d: %w", bookingserrors.ErrCorruptStore, doc.Position, err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// Save swaps the stored collection for bookings. Without transactions the
// delete and insert are not atomic; concurrent writers in this process are
// serialized by ExecuteTransaction.
func (r *mongoBookingRepository) Save(ctx context.Context, bookings []*model.Booking) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	docs := make([]any, 0, len(bookings))
	for i, b := range bookings {
		doc, err := toDocument(i, b)
		if err != nil {
			return fmt.Errorf("failed to encode booking at %d: %w", i, err)
		}
		docs = append(docs, doc)
	}

	return r.txManager.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if _, err := r.collection.DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("failed to clear bookings: %w", err)
		}
		if len(docs) == 0 {
			return nil
		}

		opts := options.InsertMany().SetOrdered(true)
		if _, err := r.collection.InsertMany(ctx, docs, opts); err != nil {
			return fmt.Errorf("failed to insert bookings: %w", err)
		}
		return nil
	})
}

func (r *mongoBookingRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *mongoBookingRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// toDocument decodes the raw booking fields into BSON-encodable values.
// Numbers travel as json.Number, which the driver stores as int64 when the
// value is integral and as a double otherwise.
func toDocument(position int, b *model.Booking) (bookingDocument, error) {
	doc := bookingDocument{
		Position: position,
		Fields:   make(bson.D, 0, b.Len()),
	}
	if id, ok := b.ID(); ok {
		doc.BookingID = &id
	}

	var err error
	b.Range(func(key string, raw json.RawMessage) {
		if err != nil {
			return
		}
		var value any
		value, err = model.DecodeValue(raw)
		if err != nil {
			err = fmt.Errorf("field %q: %w", key, err)
			return
		}
		doc.Fields = append(doc.Fields, bson.E{Key: key, Value: value})
	})
	return doc, err
}

func fromDocument(doc bookingDocument) (*model.Booking, error) {
	b := model.NewBooking()
	for _, e := range doc.Fields {
		if err := b.Set(e.Key, normalize(e.Value)); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// normalize converts decoded BSON values back into the shapes encoding/json
// produces, so stored bookings marshal the same way they were received.
func normalize(v any) any {
	switch val := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = normalize(inner)
		}
		return m
	case primitive.A:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalize(inner)
		}
		return out
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = normalize(inner)
		}
		return m
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalize(inner)
		}
		return out
	case int32:
		return int(val)
	case int64:
		return int(val)
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return val
	}
}
