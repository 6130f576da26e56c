package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"
)

// IdempotencyStore tracks Idempotency-Keys for execute-payment and the manual
// capture and release routes. A key is reserved while its first request runs,
// so a concurrent retry cannot place a second hold.
type IdempotencyStore interface {
	// Reserve returns the stored response for key when one exists. Otherwise
	// it claims key for the caller; reserved is false when another request
	// already holds it.
	Reserve(key string) (stored *StoredResponse, reserved bool)
	// Complete stores response and frees the reservation.
	Complete(key string, response *StoredResponse)
	// Abandon frees the reservation without storing anything, so the key can
	// be retried.
	Abandon(key string)
	Stop()
}

type StoredResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

type idempotencyEntry struct {
	response *StoredResponse
	since    time.Time
}

func (e *idempotencyEntry) inFlight() bool { return e.response == nil }

type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*idempotencyEntry
	ttl     time.Duration
	now     func() time.Time
	stopCh  chan struct{}
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		entries: make(map[string]*idempotencyEntry),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go s.sweep(min(ttl, time.Hour))
	return s
}

func (s *InMemoryIdempotencyStore) Reserve(key string) (*StoredResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && !s.expired(e) {
		if e.inFlight() {
			return nil, false
		}
		return e.response, false
	}

	s.entries[key] = &idempotencyEntry{since: s.now()}
	return nil, true
}

func (s *InMemoryIdempotencyStore) Complete(key string, response *StoredResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &idempotencyEntry{response: response, since: s.now()}
}

func (s *InMemoryIdempotencyStore) Abandon(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.inFlight() {
		delete(s.entries, key)
	}
}

// An in-flight entry older than ttl belongs to a request that never
// finished; it stops blocking the key.
func (s *InMemoryIdempotencyStore) expired(e *idempotencyEntry) bool {
	return s.now().Sub(e.since) > s.ttl
}

func (s *InMemoryIdempotencyStore) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, e := range s.entries {
				if s.expired(e) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	close(s.stopCh)
}

type recordingWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency replays the stored 2xx response for a repeated key and answers
// 409 while the first request with that key is still running. Failed
// responses are not stored, so the client may retry them.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = "Idempotency-Key"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := idempotencyKey(r, headerName)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			stored, reserved := store.Reserve(key)
			switch {
			case stored != nil:
				replay(w, stored)
				return
			case !reserved:
				rejectInFlight(w, headerName)
				return
			}

			rw := &recordingWriter{ResponseWriter: w, statusCode: http.StatusOK}
			completed := false
			defer func() {
				if !completed {
					store.Abandon(key)
				}
			}()

			next.ServeHTTP(rw, r)

			if rw.statusCode >= 200 && rw.statusCode < 300 {
				store.Complete(key, &StoredResponse{
					StatusCode: rw.statusCode,
					Headers:    w.Header().Clone(),
					Body:       bytes.Clone(rw.body.Bytes()),
				})
				completed = true
			}
		})
	}
}

// Keys are scoped per route so one client key cannot replay a different
// endpoint's response.
func idempotencyKey(r *http.Request, headerName string) string {
	key := r.Header.Get(headerName)
	if key == "" {
		return ""
	}
	return r.Method + " " + r.URL.Path + " " + key
}

func replay(w http.ResponseWriter, stored *StoredResponse) {
	for name, values := range stored.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.StatusCode)
	_, _ = w.Write(stored.Body)
}

func rejectInFlight(w http.ResponseWriter, headerName string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusConflict)
	_, _ = w.Write([]byte(`{"error":"A request with this ` + headerName + ` is already in progress"}`))
}
