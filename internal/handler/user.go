package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hold-a-spot/internal/credit"
	"github.com/iliyamo/hold-a-spot/internal/repository"
)

// UserHandler serves user registration and the per-user read endpoints:
// the credit breakdown and the reservation history.  There is no
// authentication; callers identify themselves by email or id, and session
// handling is the client's concern.
type UserHandler struct {
	Users        *repository.UserRepo
	Reservations *repository.ReservationRepo
}

// NewUserHandler constructs a UserHandler with the provided repositories.
func NewUserHandler(users *repository.UserRepo, reservations *repository.ReservationRepo) *UserHandler {
	if users == nil || reservations == nil {
		panic("nil repository passed to NewUserHandler")
	}
	return &UserHandler{Users: users, Reservations: reservations}
}

type createUserReq struct {
	Email string `json:"email"`
}

// CreateUser handles POST /users.  Registration is lookup-or-create by
// email: an existing account is returned with 200, a fresh one with 201.
// New users start with an empty bonus pool and a reset marker on the next
// Monday; their weekly allowance needs no explicit grant since an untouched
// week already carries the full allowance.
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errResp("Invalid request body"))
	}
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, errResp("Email is required"))
	}
	email := sanitizeEmail(req.Email)
	if !validEmail(email) {
		return c.JSON(http.StatusBadRequest, errResp("Invalid email format"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err == nil {
		return c.JSON(http.StatusOK, echo.Map{"user": u})
	}
	if !errors.Is(err, repository.ErrNotFound) {
		log.Printf("user lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to create user"))
	}

	u, err = h.Users.Create(ctx, email, credit.NextMonday(time.Now().UTC()))
	if errors.Is(err, repository.ErrEmailExists) {
		// lost a signup race; the account exists now
		if u, err = h.Users.GetByEmail(ctx, email); err == nil {
			return c.JSON(http.StatusOK, echo.Map{"user": u})
		}
	}
	if err != nil {
		log.Printf("user create failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to create user"))
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": u})
}

// GetCredits handles GET /users/:id/credits.  It returns the allowance
// breakdown for the week given by ?week_start= (any instant inside the
// intended week works; it is normalized to its Monday) or for the current
// week.  Pure read: safe to call repeatedly and concurrently.
func (h *UserHandler) GetCredits(c echo.Context) error {
	userID := c.Param("id")
	if !validUUID(userID) {
		return c.JSON(http.StatusBadRequest, errResp("Invalid user ID format"))
	}
	weekStart := credit.WeekStart(time.Now().UTC())
	if raw := c.QueryParam("week_start"); raw != "" {
		t, err := parseDateOrTimestamp(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errResp("Invalid week_start format"))
		}
		weekStart = credit.WeekStart(t)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errResp("User not found"))
	}
	if err != nil {
		log.Printf("user fetch failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to fetch credits"))
	}

	used, err := h.Reservations.UsedInWeek(ctx, h.Reservations.DB, userID, weekStart, credit.WeekEnd(weekStart), "")
	if err != nil {
		log.Printf("week aggregate failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to fetch credits"))
	}
	return c.JSON(http.StatusOK, credit.NewBreakdown(weekStart, used, u.BonusCredits))
}

// ListUserReservations handles GET /users/:id/reservations.  Reservations
// come back newest first with facility and sport names flattened in; the
// optional ?status= filter narrows to one stored status.
func (h *UserHandler) ListUserReservations(c echo.Context) error {
	userID := c.Param("id")
	if !validUUID(userID) {
		return c.JSON(http.StatusBadRequest, errResp("Invalid user ID format"))
	}
	status := c.QueryParam("status")
	if status != "" && !validStoredStatus(status) {
		return c.JSON(http.StatusBadRequest, errResp("Invalid status filter"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errResp("User not found"))
		}
		log.Printf("user fetch failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to fetch reservations"))
	}

	details, err := h.Reservations.ListByUser(ctx, userID, status)
	if err != nil {
		log.Printf("user reservations query failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to fetch reservations"))
	}
	return c.JSON(http.StatusOK, details)
}
