package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	pendingerrors "tripbroker/internal/pendingbookings/errors"
	"tripbroker/pkg/config"
	"tripbroker/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "Pending_bookings"
)

type mongoPendingBookingRepository struct {
	collection *mongo.Collection
	ttl        time.Duration
	opTimeout  time.Duration
	now        func() time.Time
}

// liveFilter matches invoiceID only while it is unexpired. The TTL monitor
// reaps expired documents about once a minute, so reads must not rely on it.
func liveFilter(invoiceID string, now time.Time) bson.M {
	return bson.M{
		"_id":        invoiceID,
		"expires_at": bson.M{"$gt": now},
	}
}

func expiredFilter(invoiceID string, now time.Time) bson.M {
	return bson.M{
		"_id":        invoiceID,
		"expires_at": bson.M{"$lte": now},
	}
}

func NewMongoPendingBookingRepository(cfg *config.Config) PendingBookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPendingBookingRepository{
		collection: db.Collection(CollectionName),
		ttl:        cfg.PendingBookingTTL,
		opTimeout:  cfg.StoreOpTimeout,
		now:        time.Now,
	}
}

func (r *mongoPendingBookingRepository) Put(ctx context.Context, pb *model.PendingBooking) error {
	if err := stamp(pb, r.ttl); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, pb)
	if mongo.IsDuplicateKeyError(err) {
		// An expired record the TTL monitor has not reaped yet does not count.
		res, delErr := r.collection.DeleteOne(ctx, expiredFilter(pb.InvoiceID, r.now()))
		if delErr != nil || res.DeletedCount == 0 {
			return fmt.Errorf("%w: %s", pendingerrors.ErrAlreadyExists, pb.InvoiceID)
		}
		_, err = r.collection.InsertOne(ctx, pb)
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", pendingerrors.ErrAlreadyExists, pb.InvoiceID)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to store pending booking: %w", err)
	}
	return nil
}

func (r *mongoPendingBookingRepository) Get(ctx context.Context, invoiceID string) (*model.PendingBooking, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	var pb model.PendingBooking
	if err := r.collection.FindOne(ctx, liveFilter(invoiceID, r.now())).Decode(&pb); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", pendingerrors.ErrNotFound, invoiceID)
		}
		return nil, fmt.Errorf("failed to find pending booking: %w", err)
	}
	return &pb, nil
}

// Claim uses FindOneAndDelete so the read and the delete are one server-side
// operation. Expired records are left for the TTL monitor.
func (r *mongoPendingBookingRepository) Claim(ctx context.Context, invoiceID string) (*model.PendingBooking, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	var pb model.PendingBooking
	if err := r.collection.FindOneAndDelete(ctx, liveFilter(invoiceID, r.now())).Decode(&pb); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", pendingerrors.ErrNotFound, invoiceID)
		}
		return nil, fmt.Errorf("failed to claim pending booking: %w", err)
	}
	return &pb, nil
}

func (r *mongoPendingBookingRepository) Delete(ctx context.Context, invoiceID string) error {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": invoiceID}); err != nil {
		return fmt.Errorf("failed to delete pending booking: %w", err)
	}
	return nil
}

func (r *mongoPendingBookingRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"expires_at": bson.M{"$gt": r.now()}})
	if err != nil {
		return 0, fmt.Errorf("failed to count pending bookings: %w", err)
	}
	return count, nil
}
