package handler // handler defines http handlers

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hold-a-spot/internal/model"
)

// emailPattern is deliberately loose: one @, no whitespace, a dot in the
// domain.  Real validation happens when mail is actually sent.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// errResp builds the conventional failure body {error, details?}.
func errResp(message string, details ...string) echo.Map {
	m := echo.Map{"error": message}
	if len(details) > 0 && details[0] != "" {
		m["details"] = details[0]
	}
	return m
}

// sanitizeEmail normalizes an address for storage and lookup.
func sanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail reports whether the (already sanitized) address looks like an
// email.
func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// validUUID reports whether s parses as a UUID.  All identifiers in the
// API are UUIDs and malformed ones are rejected before touching storage.
func validUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// parseTimestamp accepts the ISO-8601 timestamps clients send and returns
// them in UTC.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// validStoredStatus reports whether s is a status reservations are
// actually stored under.  "completed" is display-only and never persisted,
// so it is not a valid storage filter.
func validStoredStatus(s string) bool {
	return s == model.StatusConfirmed || s == model.StatusCancelled
}

// parseDateOrTimestamp additionally accepts bare dates (YYYY-MM-DD) for
// range filters.
func parseDateOrTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
