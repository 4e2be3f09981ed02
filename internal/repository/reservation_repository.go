package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hold-a-spot/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  The single
// concurrency-critical invariant of the system lives in CreateTx: for any
// facility, confirmed reservations must have pairwise non-overlapping
// [start_time, end_time) intervals.  MySQL has no exclusion constraints, so
// the guarantee is enforced transactionally here — a locking range scan
// followed by the insert — and nowhere else; application code never
// re-derives overlap outside this repository.
type ReservationRepo struct{ DB *sql.DB }

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db} }

// rowQuerier is satisfied by *sql.DB and *sql.Tx, letting the week
// aggregate run either standalone (credit breakdown reads) or inside a
// booking/cancellation transaction.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const reservationCols = `id, user_id, facility_id, start_time, end_time, credits_used, status, cancelled_by, created_at, updated_at`

// isLockConflict reports whether MySQL resolved a lock conflict by killing
// this transaction: error 1213 (deadlock victim) or 1205 (lock wait
// timeout).  Two overlapping bookings racing through the guard both take
// gap locks, which are mutually compatible, and then deadlock on each
// other's insert; the victim's offense is exactly "the slot is being
// taken", so CreateTx maps these to ErrSlotTaken.
func isLockConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "1213") || strings.Contains(msg, "1205")
}

func scanReservation(row *sql.Row) (model.Reservation, error) {
	var res model.Reservation
	var cancelledBy sql.NullString
	err := row.Scan(&res.ID, &res.UserID, &res.FacilityID, &res.StartTime, &res.EndTime,
		&res.CreditsUsed, &res.Status, &cancelledBy, &res.CreatedAt, &res.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return res, ErrNotFound
	}
	if err != nil {
		return res, err
	}
	if cancelledBy.Valid {
		cb := cancelledBy.String
		res.CancelledBy = &cb
	}
	return res, nil
}

// CreateTx inserts a confirmed reservation within the given transaction,
// assigning it a fresh UUID.  It first takes locks over any confirmed rows
// for the facility that intersect the requested interval; an existing
// overlap returns ErrSlotTaken.  When no row exists yet, two racing
// overlapping bookings can both pass the guard on compatible gap locks and
// then deadlock on each other's insert — MySQL kills one of them, and that
// loser also surfaces as ErrSlotTaken, so of two racers exactly one
// commits and the other reads as a slot conflict.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	var clash string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM reservations
		 WHERE facility_id = ? AND status = ? AND start_time < ? AND end_time > ?
		 LIMIT 1 FOR UPDATE`,
		res.FacilityID, model.StatusConfirmed, res.EndTime, res.StartTime).Scan(&clash)
	if err == nil {
		return ErrSlotTaken
	}
	if isLockConflict(err) {
		return ErrSlotTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	res.ID = uuid.NewString()
	res.Status = model.StatusConfirmed
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (id, user_id, facility_id, start_time, end_time, credits_used, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.UserID, res.FacilityID, res.StartTime, res.EndTime, res.CreditsUsed, res.Status); err != nil {
		if isLockConflict(err) {
			return ErrSlotTaken
		}
		return err
	}
	// Read back timestamps assigned by the database
	return tx.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM reservations WHERE id = ?`, res.ID).
		Scan(&res.CreatedAt, &res.UpdatedAt)
}

// GetByID fetches a reservation by id.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (model.Reservation, error) {
	return scanReservation(r.DB.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ? LIMIT 1`, id))
}

// GetByIDForUpdateTx fetches a reservation under a row lock so the
// cancellation decision (already cancelled? already started?) cannot race
// another cancel of the same row.
func (r *ReservationRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (model.Reservation, error) {
	return scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ? LIMIT 1 FOR UPDATE`, id))
}

// CancelTx marks a confirmed reservation cancelled and records who did it.
// The status filter makes the transition idempotence-safe even if the
// caller's earlier read somehow went stale: a second cancel affects zero
// rows and reports ErrNotFound.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, id, cancelledBy string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = ?, cancelled_by = ? WHERE id = ? AND status = ?`,
		model.StatusCancelled, cancelledBy, id, model.StatusConfirmed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UsedInWeek sums credits_used over a user's confirmed reservations whose
// start_time falls in [weekStart, weekEnd).  Cancelled rows drop out of the
// aggregate, which is what makes the weekly-allowance portion of a refund
// implicit.  excludeID, when non-empty, leaves one reservation out —
// cancellation uses this to re-derive how much of that booking's cost came
// from the bonus pool.
func (r *ReservationRepo) UsedInWeek(ctx context.Context, q rowQuerier, userID string, weekStart, weekEnd time.Time, excludeID string) (int, error) {
	query := `SELECT COALESCE(SUM(credits_used), 0) FROM reservations
			  WHERE user_id = ? AND status = ? AND start_time >= ? AND start_time < ?`
	args := []any{userID, model.StatusConfirmed, weekStart, weekEnd}
	if excludeID != "" {
		query += ` AND id <> ?`
		args = append(args, excludeID)
	}
	var used int
	err := q.QueryRowContext(ctx, query, args...).Scan(&used)
	return used, err
}

// HasOverlap reports whether any confirmed reservation for the facility
// intersects [start, end).  This is the availability pre-check; the
// authoritative answer is still CreateTx's guard.
func (r *ReservationRepo) HasOverlap(ctx context.Context, facilityID string, start, end time.Time) (bool, error) {
	var id string
	err := r.DB.QueryRowContext(ctx,
		`SELECT id FROM reservations
		 WHERE facility_id = ? AND status = ? AND start_time < ? AND end_time > ?
		 LIMIT 1`,
		facilityID, model.StatusConfirmed, end, start).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListFilter narrows List.  Zero times mean "no bound"; an empty status
// means the caller wants every status.
type ListFilter struct {
	FacilityID string
	StartDate  time.Time
	EndDate    time.Time
	Status     string
}

const detailCols = `r.id, r.user_id, r.facility_id, r.start_time, r.end_time, r.credits_used,
	   r.status, r.cancelled_by, r.created_at, r.updated_at,
	   u.email, f.name, f.type, s.name`

func scanDetail(scan func(...any) error, now time.Time) (model.ReservationDetail, error) {
	var d model.ReservationDetail
	var cancelledBy sql.NullString
	err := scan(&d.ID, &d.UserID, &d.FacilityID, &d.StartTime, &d.EndTime, &d.CreditsUsed,
		&d.Status, &cancelledBy, &d.CreatedAt, &d.UpdatedAt,
		&d.UserEmail, &d.FacilityName, &d.FacilityType, &d.SportName)
	if err != nil {
		return d, err
	}
	if cancelledBy.Valid {
		cb := cancelledBy.String
		d.CancelledBy = &cb
	}
	d.DisplayStatusValue = d.DisplayStatus(now)
	return d, nil
}

// List returns reservations with user and facility summaries attached,
// ordered by start time ascending (calendar order).
func (r *ReservationRepo) List(ctx context.Context, filter ListFilter) ([]model.ReservationDetail, error) {
	q := `SELECT ` + detailCols + `
		  FROM reservations r
		  JOIN users u ON u.id = r.user_id
		  JOIN facilities f ON f.id = r.facility_id
		  JOIN sports s ON s.id = f.sport_id
		  WHERE 1=1`
	args := make([]any, 0, 4)
	if filter.Status != "" {
		q += ` AND r.status = ?`
		args = append(args, filter.Status)
	}
	if filter.FacilityID != "" {
		q += ` AND r.facility_id = ?`
		args = append(args, filter.FacilityID)
	}
	if !filter.StartDate.IsZero() {
		q += ` AND r.start_time >= ?`
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		q += ` AND r.end_time <= ?`
		args = append(args, filter.EndDate)
	}
	q += ` ORDER BY r.start_time`

	return r.queryDetails(ctx, q, args...)
}

// ListByUser returns one user's reservations, newest first, optionally
// narrowed by status.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID, status string) ([]model.ReservationDetail, error) {
	q := `SELECT ` + detailCols + `
		  FROM reservations r
		  JOIN users u ON u.id = r.user_id
		  JOIN facilities f ON f.id = r.facility_id
		  JOIN sports s ON s.id = f.sport_id
		  WHERE r.user_id = ?`
	args := []any{userID}
	if status != "" {
		q += ` AND r.status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY r.start_time DESC`

	return r.queryDetails(ctx, q, args...)
}

func (r *ReservationRepo) queryDetails(ctx context.Context, q string, args ...any) ([]model.ReservationDetail, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	now := time.Now().UTC()
	details := make([]model.ReservationDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows.Scan, now)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}
