package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	pendingerrors "tripbroker/internal/pendingbookings/errors"
	"tripbroker/pkg/model"
)

// memoryPendingBookingRepository is a process-local store for tests and
// single-instance local runs. Expired records read as absent.
type memoryPendingBookingRepository struct {
	mu      sync.Mutex
	records map[string]model.PendingBooking
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryPendingBookingRepository(ttl time.Duration) PendingBookingRepository {
	return &memoryPendingBookingRepository{
		records: make(map[string]model.PendingBooking),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *memoryPendingBookingRepository) Put(_ context.Context, pb *model.PendingBooking) error {
	if err := stamp(pb, r.ttl); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.records[pb.InvoiceID]; ok && !r.expired(existing) {
		return fmt.Errorf("%w: %s", pendingerrors.ErrAlreadyExists, pb.InvoiceID)
	}
	r.records[pb.InvoiceID] = *pb
	return nil
}

func (r *memoryPendingBookingRepository) Get(_ context.Context, invoiceID string) (*model.PendingBooking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pb, ok := r.records[invoiceID]
	if !ok || r.expired(pb) {
		return nil, fmt.Errorf("%w: %s", pendingerrors.ErrNotFound, invoiceID)
	}
	return &pb, nil
}

func (r *memoryPendingBookingRepository) Claim(_ context.Context, invoiceID string) (*model.PendingBooking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pb, ok := r.records[invoiceID]
	delete(r.records, invoiceID)
	if !ok || r.expired(pb) {
		return nil, fmt.Errorf("%w: %s", pendingerrors.ErrNotFound, invoiceID)
	}
	return &pb, nil
}

func (r *memoryPendingBookingRepository) Delete(_ context.Context, invoiceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, invoiceID)
	return nil
}

func (r *memoryPendingBookingRepository) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for id, pb := range r.records {
		if r.expired(pb) {
			delete(r.records, id)
			continue
		}
		count++
	}
	return count, nil
}

func (r *memoryPendingBookingRepository) expired(pb model.PendingBooking) bool {
	return !pb.ExpiresAt.IsZero() && !r.now().Before(pb.ExpiresAt)
}
