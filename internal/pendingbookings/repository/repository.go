package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	pendingerrors "tripbroker/internal/pendingbookings/errors"
	"tripbroker/pkg/config"
	"tripbroker/pkg/model"
)

// PendingBookingRepository keeps booking intents between ExecutePayment and
// the gateway webhook. At most one record exists per invoice id.
type PendingBookingRepository interface {
	Put(ctx context.Context, pb *model.PendingBooking) error
	Get(ctx context.Context, invoiceID string) (*model.PendingBooking, error)
	// Claim removes the record and returns it in one atomic step. When
	// several callers race for the same invoice only one gets the record;
	// the rest get ErrNotFound.
	Claim(ctx context.Context, invoiceID string) (*model.PendingBooking, error)
	Delete(ctx context.Context, invoiceID string) error
	Count(ctx context.Context) (int64, error)
}

// NewPendingBookingRepository returns the backend cfg.PendingStoreBackend
// selects. The matching client connection must already be set on cfg.
func NewPendingBookingRepository(cfg *config.Config) (PendingBookingRepository, error) {
	switch cfg.PendingStoreBackend {
	case config.StoreBackendMongo:
		if cfg.Client.Mongo == nil {
			return nil, fmt.Errorf("mongo backend selected but no mongo client is connected")
		}
		return NewMongoPendingBookingRepository(cfg), nil
	case config.StoreBackendRedis:
		if cfg.Client.Redis == nil {
			return nil, fmt.Errorf("redis backend selected but no redis client is connected")
		}
		return NewRedisPendingBookingRepository(cfg.Client.Redis, cfg.PendingBookingTTL, cfg.StoreOpTimeout), nil
	case config.StoreBackendMemory:
		return NewMemoryPendingBookingRepository(cfg.PendingBookingTTL), nil
	default:
		return nil, fmt.Errorf("unknown pending store backend: %q", cfg.PendingStoreBackend)
	}
}

// stamp fills the timestamps a new record carries.
func stamp(pb *model.PendingBooking, ttl time.Duration) error {
	pb.InvoiceID = strings.TrimSpace(pb.InvoiceID)
	if pb.InvoiceID == "" {
		return pendingerrors.ErrInvalidInvoiceID
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	pb.CreatedAt = now
	if ttl > 0 {
		pb.ExpiresAt = now.Add(ttl)
	}
	return nil
}

// withTimeout bounds ctx by timeout unless ctx already ends sooner.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
