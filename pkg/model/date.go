package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// DateParts is the {day, month, year} shape some clients send instead of an
// ISO string. Each part may be a number or a numeric string.
type DateParts struct {
	Day   FlexString `json:"day"`
	Month FlexString `json:"month"`
	Year  FlexString `json:"year"`
}

// NormalizeDate turns an ISO date, an RFC 3339 timestamp or a DateParts
// object into YYYY-MM-DD. Timestamps are converted to UTC first.
func NormalizeDate(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
		return normalizeDateString(s)
	case '{':
		var parts DateParts
		if err := json.Unmarshal(raw, &parts); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
		return parts.Format()
	default:
		return "", fmt.Errorf("%w: unsupported value %s", ErrInvalidDate, string(raw))
	}
}

func normalizeDateString(s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().Format(DateLayout), nil
	}
	if len(s) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (p DateParts) Format() (string, error) {
	day, err1 := strconv.Atoi(p.Day.String())
	month, err2 := strconv.Atoi(p.Month.String())
	year, err3 := strconv.Atoi(p.Year.String())
	if err := errors.Join(err1, err2, err3); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", fmt.Errorf("%w: %04d-%02d-%02d does not exist", ErrInvalidDate, year, month, day)
	}
	return t.Format(DateLayout), nil
}
