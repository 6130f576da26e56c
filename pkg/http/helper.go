package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "tripbroker/pkg/errors"
)

// DecodeJSON reads one JSON document from the request body into dst.
// Malformed or empty bodies become InvalidInput errors.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("request body is empty")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.PayloadTooLarge()
		}
		return apperrors.InvalidInput("invalid JSON body: " + err.Error())
	}
	return nil
}
