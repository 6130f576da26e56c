// Package sanitizer normalizes traveler-supplied strings before they are
// handed to the downstream booking service.
//
// All functions are idempotent and never fail: malformed input degrades to a
// best-effort value (usually the digits or the trimmed text) instead of an
// error, since a booking must not be lost over formatting.
package sanitizer
