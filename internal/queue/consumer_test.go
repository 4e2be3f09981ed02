package queue

import (
	"encoding/json"
	"strings"
	"testing"
)

func envelope(t *testing.T, typ string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(Envelope{Type: typ, Data: data})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestAuditLineBooked(t *testing.T) {
	body := envelope(t, TypeReservationBooked, ReservationBookedEvent{
		ReservationID:    "res-1",
		UserID:           "user-1",
		FacilityID:       "fac-1",
		FacilityName:     "Court 1",
		StartTime:        "2025-06-12T09:00:00Z",
		EndTime:          "2025-06-12T11:00:00Z",
		CreditsUsed:      4,
		RemainingCredits: 6,
		BookedAt:         "2025-06-11T12:00:00Z",
	})
	line, err := auditLine(body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"booked", "res-1", `"Court 1"`, "cost=4", "remaining=6"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}

func TestAuditLineCancelled(t *testing.T) {
	body := envelope(t, TypeReservationCancelled, ReservationCancelledEvent{
		ReservationID:   "res-2",
		UserID:          "user-1",
		CancelledBy:     "admin",
		RefundedCredits: 4,
		RefundedToBonus: 2,
		CancelledAt:     "2025-06-11T12:00:00Z",
	})
	line, err := auditLine(body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"cancelled", "res-2", "by=admin", "refunded=4", "(2 to bonus)"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}

func TestAuditLineReset(t *testing.T) {
	body := envelope(t, TypeCreditsReset, CreditsResetEvent{ResetCount: 9, ErrorCount: 1, TotalUsers: 10, RanAt: "2025-06-16T00:05:00Z"})
	line, err := auditLine(body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"weekly reset", "reset=9", "errors=1", "due=10"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
}

func TestAuditLineRejectsGarbage(t *testing.T) {
	if _, err := auditLine([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed body")
	}
	if _, err := auditLine(envelope(t, "unknown.type", struct{}{})); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
