package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pendingerrors "tripbroker/internal/pendingbookings/errors"
	"tripbroker/pkg/model"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "pending_booking:"
	redisScanBatch = 500
)

type redisPendingBookingRepository struct {
	rdb       *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
}

func NewRedisPendingBookingRepository(rdb *redis.Client, ttl, opTimeout time.Duration) PendingBookingRepository {
	return &redisPendingBookingRepository{
		rdb:       rdb,
		ttl:       ttl,
		opTimeout: opTimeout,
	}
}

func redisKey(invoiceID string) string {
	return redisKeyPrefix + invoiceID
}

func encodePendingBooking(pb *model.PendingBooking) ([]byte, error) {
	return json.Marshal(pb)
}

func decodePendingBooking(data []byte) (*model.PendingBooking, error) {
	var pb model.PendingBooking
	if err := json.Unmarshal(data, &pb); err != nil {
		return nil, fmt.Errorf("failed to decode pending booking: %w", err)
	}
	return &pb, nil
}

// Put writes with SETNX so an existing hold for the same invoice is never
// overwritten.
func (r *redisPendingBookingRepository) Put(ctx context.Context, pb *model.PendingBooking) error {
	if err := stamp(pb, r.ttl); err != nil {
		return err
	}
	data, err := encodePendingBooking(pb)
	if err != nil {
		return fmt.Errorf("failed to encode pending booking: %w", err)
	}

	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	ok, err := r.rdb.SetNX(ctx, redisKey(pb.InvoiceID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store pending booking: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", pendingerrors.ErrAlreadyExists, pb.InvoiceID)
	}
	return nil
}

func (r *redisPendingBookingRepository) Get(ctx context.Context, invoiceID string) (*model.PendingBooking, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	data, err := r.rdb.Get(ctx, redisKey(invoiceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", pendingerrors.ErrNotFound, invoiceID)
		}
		return nil, fmt.Errorf("failed to find pending booking: %w", err)
	}
	return decodePendingBooking(data)
}

// Claim relies on GETDEL, which Redis executes atomically.
func (r *redisPendingBookingRepository) Claim(ctx context.Context, invoiceID string) (*model.PendingBooking, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	data, err := r.rdb.GetDel(ctx, redisKey(invoiceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", pendingerrors.ErrNotFound, invoiceID)
		}
		return nil, fmt.Errorf("failed to claim pending booking: %w", err)
	}
	return decodePendingBooking(data)
}

func (r *redisPendingBookingRepository) Delete(ctx context.Context, invoiceID string) error {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.rdb.Del(ctx, redisKey(invoiceID)).Err(); err != nil {
		return fmt.Errorf("failed to delete pending booking: %w", err)
	}
	return nil
}

func (r *redisPendingBookingRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	var count int64
	iter := r.rdb.Scan(ctx, 0, redisKeyPrefix+"*", redisScanBatch).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to count pending bookings: %w", err)
	}
	return count, nil
}
