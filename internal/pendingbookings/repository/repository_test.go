package repository

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pendingerrors "tripbroker/internal/pendingbookings/errors"
	"tripbroker/pkg/client"
	"tripbroker/pkg/config"
	"tripbroker/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingBooking(invoiceID string) *model.PendingBooking {
	return &model.PendingBooking{
		InvoiceID: invoiceID,
		BookingData: model.BookingData{
			FlightOffer:  json.RawMessage(`{"id":"offer-1"}`),
			InvoiceValue: 120,
			SessionID:    "sess-1",
			Travelers: []model.TravelerRecord{{
				FirstName:   "Omar",
				LastName:    "Khalid",
				DateOfBirth: json.RawMessage(`"1988-02-14"`),
			}},
		},
	}
}

func TestMemory_PutGetClaim(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPendingBookingRepository(time.Hour)

	require.NoError(t, repo.Put(ctx, newPendingBooking("INV-1001")))

	got, err := repo.Get(ctx, "INV-1001")
	require.NoError(t, err)
	assert.Equal(t, 120.0, got.BookingData.InvoiceValue)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, got.CreatedAt.Add(time.Hour), got.ExpiresAt)

	claimed, err := repo.Claim(ctx, "INV-1001")
	require.NoError(t, err)
	assert.Equal(t, "INV-1001", claimed.InvoiceID)

	_, err = repo.Get(ctx, "INV-1001")
	assert.ErrorIs(t, err, pendingerrors.ErrNotFound)

	_, err = repo.Claim(ctx, "INV-1001")
	assert.ErrorIs(t, err, pendingerrors.ErrNotFound)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemory_PutRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPendingBookingRepository(time.Hour)

	require.NoError(t, repo.Put(ctx, newPendingBooking("INV-1")))
	err := repo.Put(ctx, newPendingBooking("INV-1"))
	assert.ErrorIs(t, err, pendingerrors.ErrAlreadyExists)
}

func TestMemory_PutRejectsEmptyInvoiceID(t *testing.T) {
	repo := NewMemoryPendingBookingRepository(time.Hour)
	err := repo.Put(context.Background(), newPendingBooking("  "))
	assert.ErrorIs(t, err, pendingerrors.ErrInvalidInvoiceID)
}

func TestMemory_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPendingBookingRepository(time.Hour)

	require.NoError(t, repo.Put(ctx, newPendingBooking("INV-1")))
	require.NoError(t, repo.Delete(ctx, "INV-1"))
	require.NoError(t, repo.Delete(ctx, "INV-1"))

	_, err := repo.Get(ctx, "INV-1")
	assert.ErrorIs(t, err, pendingerrors.ErrNotFound)
}

func TestMemory_ExpiredRecordsReadAsAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPendingBookingRepository(time.Minute).(*memoryPendingBookingRepository)

	require.NoError(t, repo.Put(ctx, newPendingBooking("INV-OLD")))
	repo.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err := repo.Get(ctx, "INV-OLD")
	assert.ErrorIs(t, err, pendingerrors.ErrNotFound)

	_, err = repo.Claim(ctx, "INV-OLD")
	assert.ErrorIs(t, err, pendingerrors.ErrNotFound)

	require.NoError(t, repo.Put(ctx, newPendingBooking("INV-OLD2")))
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemory_ConcurrentClaimHasOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPendingBookingRepository(time.Hour)
	require.NoError(t, repo.Put(ctx, newPendingBooking("INV-RACE")))

	const callers = 32
	var winners, losers int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := repo.Claim(ctx, "INV-RACE"); err == nil {
				atomic.AddInt32(&winners, 1)
			} else if assert.ErrorIs(t, err, pendingerrors.ErrNotFound) {
				atomic.AddInt32(&losers, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners)
	assert.Equal(t, int32(callers-1), losers)
}

func TestRedisEncoding(t *testing.T) {
	assert.Equal(t, "pending_booking:INV-1001", redisKey("INV-1001"))

	pb := newPendingBooking("INV-1001")
	require.NoError(t, stamp(pb, time.Hour))

	data, err := encodePendingBooking(pb)
	require.NoError(t, err)

	decoded, err := decodePendingBooking(data)
	require.NoError(t, err)
	assert.Equal(t, pb.InvoiceID, decoded.InvoiceID)
	assert.JSONEq(t, string(pb.BookingData.FlightOffer), string(decoded.BookingData.FlightOffer))
	assert.True(t, pb.ExpiresAt.Equal(decoded.ExpiresAt))

	_, err = decodePendingBooking([]byte("{"))
	assert.Error(t, err)
}

func TestNewPendingBookingRepository(t *testing.T) {
	cfg := &config.Config{
		PendingStoreBackend: config.StoreBackendMemory,
		PendingBookingTTL:   time.Hour,
		Client:              client.NewClient(),
	}
	repo, err := NewPendingBookingRepository(cfg)
	require.NoError(t, err)
	assert.IsType(t, &memoryPendingBookingRepository{}, repo)

	cfg.PendingStoreBackend = config.StoreBackendMongo
	_, err = NewPendingBookingRepository(cfg)
	assert.Error(t, err)

	cfg.PendingStoreBackend = config.StoreBackendRedis
	_, err = NewPendingBookingRepository(cfg)
	assert.Error(t, err)

	cfg.PendingStoreBackend = "etcd"
	_, err = NewPendingBookingRepository(cfg)
	assert.Error(t, err)
}

func TestWithTimeout_KeepsShorterDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ctx, done := withTimeout(parent, time.Hour)
	defer done()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.Less(t, time.Until(deadline), time.Second)
}
