// Package bookingsvc calls the downstream flight booking service that
// commits a reservation once the payment hold is confirmed.
package bookingsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tripbroker/pkg/client"
	"tripbroker/pkg/logger"
	"tripbroker/pkg/model"
)

const pathFlightBooking = "/flights/flight-booking"

var ErrBookingFailed = errors.New("flight booking failed")

// BookingServiceFailure is returned for any answer other than 201 and for
// transport faults. StatusCode is 0 when no answer arrived.
type BookingServiceFailure struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *BookingServiceFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("booking service (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("booking service: %v", e.Err)
}

func (e *BookingServiceFailure) Unwrap() error {
	return e.Err
}

type Result struct {
	StatusCode int
	Body       []byte
}

type Client struct {
	http *client.HttpClient
	log  *logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		http: client.NewHttpClient(strings.TrimRight(baseURL, "/"), timeout),
		log:  log,
	}
}

// Book submits req. Only 201 Created counts as a committed booking.
func (c *Client) Book(ctx context.Context, req *model.FlightBookingRequest) (*Result, error) {
	resp, err := c.http.POST(ctx, pathFlightBooking, req)
	if err != nil {
		return nil, &BookingServiceFailure{Err: fmt.Errorf("%w: %w", ErrBookingFailed, err)}
	}

	result := &Result{StatusCode: resp.StatusCode, Body: resp.Body}
	if resp.StatusCode != http.StatusCreated {
		return result, &BookingServiceFailure{
			StatusCode: resp.StatusCode,
			Message:    client.GetErrorMessage(resp),
			Err:        ErrBookingFailed,
		}
	}

	c.log.InfoContext(ctx, "Flight booking committed", "status", resp.StatusCode, "travelers", len(req.Travelers))
	return result, nil
}
