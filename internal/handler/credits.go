package handler

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hold-a-spot/internal/credit"
	"github.com/iliyamo/hold-a-spot/internal/queue"
	"github.com/iliyamo/hold-a-spot/internal/repository"
)

// ResetHandler runs the weekly allowance reset.  The allowance itself is
// implicit (it renews when the calendar week rolls over), so the job's
// real work is advancing each user's reset marker; it exists as an HTTP
// endpoint so an external scheduler can drive it.
type ResetHandler struct {
	Users  *repository.UserRepo
	Secret string
}

// NewResetHandler constructs a ResetHandler.  Secret is the shared token
// the scheduler must present as a bearer credential.
func NewResetHandler(users *repository.UserRepo, secret string) *ResetHandler {
	if users == nil {
		panic("nil repository passed to NewResetHandler")
	}
	return &ResetHandler{Users: users, Secret: secret}
}

// Run handles POST /credits/reset.  Each user is advanced independently:
// one bad row is counted and logged, never aborts the batch.
func (h *ResetHandler) Run(c echo.Context) error {
	if !h.authorized(c.Request().Header.Get("Authorization")) {
		return c.JSON(http.StatusUnauthorized, errResp("Unauthorized"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()
	due, err := h.Users.ListDueForReset(ctx, now)
	if err != nil {
		log.Printf("reset: listing due users failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to reset credits"))
	}

	next := credit.NextMonday(now)
	resetCount, errorCount := 0, 0
	for _, u := range due {
		if err := h.Users.AdvanceResetDate(ctx, u.ID, next); err != nil {
			log.Printf("reset: advancing user %s failed: %v", u.ID, err)
			errorCount++
			continue
		}
		resetCount++
	}

	_ = queue.PublishCreditsReset(ctx, queue.CreditsResetEvent{
		ResetCount: resetCount,
		ErrorCount: errorCount,
		TotalUsers: len(due),
		RanAt:      now.Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":     "Weekly credits reset completed",
		"reset_count": resetCount,
		"error_count": errorCount,
		"total_users": len(due),
	})
}

// authorized compares the bearer token against the shared secret in
// constant time.  An empty configured secret disables the endpoint.
func (h *ResetHandler) authorized(header string) bool {
	if h.Secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.Secret)) == 1
}
