package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hold-a-spot/internal/credit"
	"github.com/iliyamo/hold-a-spot/internal/model"
	"github.com/iliyamo/hold-a-spot/internal/queue"
	"github.com/iliyamo/hold-a-spot/internal/repository"
)

// ReservationHandler implements the reservation lifecycle: browse, check,
// book, cancel.  Every mutation runs inside a single database transaction
// so the reservation row and the credit movement commit or roll back
// together; the broker is only told about a change after its commit.
type ReservationHandler struct {
	Users        *repository.UserRepo
	Catalog      *repository.CatalogRepo
	Reservations *repository.ReservationRepo
}

// NewReservationHandler constructs a ReservationHandler with the provided
// repositories.  All dependencies must be non-nil.
func NewReservationHandler(users *repository.UserRepo, catalog *repository.CatalogRepo, reservations *repository.ReservationRepo) *ReservationHandler {
	if users == nil || catalog == nil || reservations == nil {
		panic("nil repository passed to NewReservationHandler")
	}
	return &ReservationHandler{Users: users, Catalog: catalog, Reservations: reservations}
}

type createReservationReq struct {
	UserID     string `json:"user_id"`
	FacilityID string `json:"facility_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// Create handles POST /reservations.  The pipeline is: request shape,
// identifier formats, timestamp parsing, future-dating, facility lookup,
// duration policy, affordability, then one transaction holding the user's
// credit row lock, the overlap-guarded insert and the conditional bonus
// deduction.  The overlap guard is the sole arbiter of conflicts and its
// failure surfaces as 409; losing the credit race surfaces as 400.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errResp("Invalid request body"))
	}
	if missing := missingFields(req); len(missing) > 0 {
		return c.JSON(http.StatusBadRequest,
			errResp("Missing required fields: "+strings.Join(missing, ", ")))
	}
	if !validUUID(req.UserID) {
		return c.JSON(http.StatusBadRequest, errResp("Invalid user ID format"))
	}
	if !validUUID(req.FacilityID) {
		return c.JSON(http.StatusBadRequest, errResp("Invalid facility ID format"))
	}
	start, err := parseTimestamp(req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errResp("Invalid start_time format"))
	}
	end, err := parseTimestamp(req.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errResp("Invalid end_time format"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	facility, err := h.Catalog.GetFacility(ctx, req.FacilityID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errResp("Facility not found"))
	}
	if err != nil {
		log.Printf("facility fetch failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to create reservation"))
	}

	now := time.Now().UTC()
	if err := credit.ValidateBooking(start, end, now, facility.Sport.MaxBookingHours); err != nil {
		return c.JSON(http.StatusBadRequest, errResp(err.Error()))
	}
	creditsNeeded := credit.Credits(start, end)

	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errResp("User not found"))
		}
		log.Printf("user fetch failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to create reservation"))
	}

	tx, err := h.Reservations.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("begin tx failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to create reservation"))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the user's credit row first: it serializes same-user bookings so
	// the allowance check below cannot be double-spent.
	bonus, err := h.Users.GetBonusForUpdateTx(ctx, tx, req.UserID)
	if err != nil {
		log.Printf("bonus lock failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to create reservation"))
	}

	weekStart := credit.WeekStart(start)
	used, err := h.Reservations.UsedInWeek(ctx, tx, req.UserID, weekStart, credit.WeekEnd(weekStart), "")
	if err != nil {
		log.Printf("week aggregate failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to create reservation"))
	}
	breakdown := credit.NewBreakdown(weekStart, used, bonus)
	if creditsNeeded > breakdown.TotalAvailable {
		return c.JSON(http.StatusBadRequest, errResp("Insufficient credits",
			fmt.Sprintf("You need %d credits but only have %d", creditsNeeded, breakdown.TotalAvailable)))
	}

	res := model.Reservation{
		UserID:      req.UserID,
		FacilityID:  req.FacilityID,
		StartTime:   start,
		EndTime:     end,
		CreditsUsed: creditsNeeded,
	}
	if err := h.Reservations.CreateTx(ctx, tx, &res); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return c.JSON(http.StatusConflict, errResp("Time slot unavailable", "This time slot is already booked"))
		}
		log.Printf("reservation insert failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to create reservation"))
	}

	if err := h.Users.DeductBonusTx(ctx, tx, req.UserID, credit.BonusDraw(creditsNeeded, breakdown.WeeklyRemaining)); err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			return c.JSON(http.StatusBadRequest, errResp("Insufficient credits"))
		}
		log.Printf("bonus deduction failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to create reservation"))
	}

	if err := tx.Commit(); err != nil {
		log.Printf("commit failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to create reservation"))
	}
	committed = true

	remaining := breakdown.TotalAvailable - creditsNeeded
	_ = queue.PublishReservationBooked(ctx, queue.ReservationBookedEvent{
		ReservationID:    res.ID,
		UserID:           res.UserID,
		FacilityID:       res.FacilityID,
		FacilityName:     facility.Name,
		StartTime:        res.StartTime.Format(time.RFC3339),
		EndTime:          res.EndTime.Format(time.RFC3339),
		CreditsUsed:      res.CreditsUsed,
		RemainingCredits: remaining,
		BookedAt:         now.Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"reservation":       res,
		"remaining_credits": remaining,
	})
}

func missingFields(req createReservationReq) []string {
	missing := make([]string, 0, 4)
	if req.UserID == "" {
		missing = append(missing, "user_id")
	}
	if req.FacilityID == "" {
		missing = append(missing, "facility_id")
	}
	if req.StartTime == "" {
		missing = append(missing, "start_time")
	}
	if req.EndTime == "" {
		missing = append(missing, "end_time")
	}
	return missing
}

// Cancel handles DELETE /reservations/:id.  Cancellation is terminal and
// never retroactive: unknown ids are 404, repeated or past cancellations
// are 400.  The status flip and the bonus refund commit together; the
// weekly-allowance portion of the cost needs no explicit refund because
// the cancelled row stops counting toward the week's aggregate.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id := c.Param("id")
	if !validUUID(id) {
		return c.JSON(http.StatusBadRequest, errResp("Invalid reservation ID format"))
	}
	cancelledBy := c.QueryParam("cancelled_by")
	if cancelledBy == "" {
		cancelledBy = model.CancelledByUser
	}
	if cancelledBy != model.CancelledByUser && cancelledBy != model.CancelledByAdmin {
		return c.JSON(http.StatusBadRequest, errResp(`Invalid cancelled_by. Must be "user" or "admin"`))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	// Plain read first to learn the owning user; the authoritative locked
	// read happens inside the transaction below.
	res, err := h.Reservations.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errResp("Reservation not found"))
	}
	if err != nil {
		log.Printf("reservation fetch failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to cancel reservation"))
	}

	tx, err := h.Reservations.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("begin tx failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to cancel reservation"))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock order matches booking (user row, then reservation rows) so a
	// concurrent create and cancel for the same user cannot deadlock.  The
	// lock also serializes re-deriving the bonus-funded portion of this
	// booking's cost against other credit movements.
	if _, err := h.Users.GetBonusForUpdateTx(ctx, tx, res.UserID); err != nil {
		log.Printf("bonus lock failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to cancel reservation"))
	}

	res, err = h.Reservations.GetByIDForUpdateTx(ctx, tx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errResp("Reservation not found"))
	}
	if err != nil {
		log.Printf("reservation fetch failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to cancel reservation"))
	}
	if res.Status == model.StatusCancelled {
		return c.JSON(http.StatusBadRequest, errResp("Reservation is already cancelled"))
	}
	now := time.Now().UTC()
	if res.StartTime.Before(now) {
		return c.JSON(http.StatusBadRequest, errResp("Cannot cancel past reservations"))
	}

	weekStart := credit.WeekStart(res.StartTime)
	otherUsed, err := h.Reservations.UsedInWeek(ctx, tx, res.UserID, weekStart, credit.WeekEnd(weekStart), res.ID)
	if err != nil {
		log.Printf("week aggregate failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to cancel reservation"))
	}
	refundToBonus := credit.BonusRefund(res.CreditsUsed, otherUsed)

	if err := h.Reservations.CancelTx(ctx, tx, res.ID, cancelledBy); err != nil {
		log.Printf("cancel update failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to cancel reservation"))
	}
	if err := h.Users.RefundBonusTx(ctx, tx, res.UserID, refundToBonus); err != nil {
		log.Printf("bonus refund failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to cancel reservation"))
	}

	if err := tx.Commit(); err != nil {
		log.Printf("commit failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to cancel reservation"))
	}
	committed = true

	_ = queue.PublishReservationCancelled(ctx, queue.ReservationCancelledEvent{
		ReservationID:   res.ID,
		UserID:          res.UserID,
		FacilityID:      res.FacilityID,
		CancelledBy:     cancelledBy,
		RefundedCredits: res.CreditsUsed,
		RefundedToBonus: refundToBonus,
		CancelledAt:     now.Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":           "Reservation cancelled successfully",
		"refunded_credits":  res.CreditsUsed,
		"refunded_to_bonus": refundToBonus,
	})
}

// List handles GET /reservations.  The status filter defaults to confirmed
// so the calendar shows only slots that actually block bookings; pass
// ?status=cancelled to audit cancellations.
func (h *ReservationHandler) List(c echo.Context) error {
	filter := repository.ListFilter{Status: model.StatusConfirmed}
	if s := c.QueryParam("status"); s != "" {
		if !validStoredStatus(s) {
			return c.JSON(http.StatusBadRequest, errResp("Invalid status filter"))
		}
		filter.Status = s
	}
	if fid := c.QueryParam("facility_id"); fid != "" {
		if !validUUID(fid) {
			return c.JSON(http.StatusBadRequest, errResp("Invalid facility ID format"))
		}
		filter.FacilityID = fid
	}
	if raw := c.QueryParam("start_date"); raw != "" {
		t, err := parseDateOrTimestamp(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errResp("Invalid start_date format"))
		}
		filter.StartDate = t
	}
	if raw := c.QueryParam("end_date"); raw != "" {
		t, err := parseDateOrTimestamp(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errResp("Invalid end_date format"))
		}
		filter.EndDate = t
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	details, err := h.Reservations.List(ctx, filter)
	if err != nil {
		log.Printf("reservations query failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to fetch reservations"))
	}
	return c.JSON(http.StatusOK, details)
}

// CheckAvailability handles GET /reservations/availability, the cheap
// pre-check the booking modal polls before submitting.  A "yes" here is
// advisory only; the guarded insert still decides.
func (h *ReservationHandler) CheckAvailability(c echo.Context) error {
	facilityID := c.QueryParam("facility_id")
	startRaw := c.QueryParam("start_time")
	endRaw := c.QueryParam("end_time")
	for name, v := range map[string]string{"facility_id": facilityID, "start_time": startRaw, "end_time": endRaw} {
		if v == "" {
			return c.JSON(http.StatusBadRequest, errResp("Missing required parameter: "+name))
		}
	}
	if !validUUID(facilityID) {
		return c.JSON(http.StatusBadRequest, errResp("Invalid facility ID format"))
	}
	start, err := parseTimestamp(startRaw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errResp("Invalid start_time format"))
	}
	end, err := parseTimestamp(endRaw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errResp("Invalid end_time format"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	taken, err := h.Reservations.HasOverlap(ctx, facilityID, start, end)
	if err != nil {
		log.Printf("availability query failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errResp("Failed to check availability"))
	}
	if taken {
		return c.JSON(http.StatusOK, echo.Map{"available": false, "reason": "This time slot is already booked"})
	}
	return c.JSON(http.StatusOK, echo.Map{"available": true})
}
