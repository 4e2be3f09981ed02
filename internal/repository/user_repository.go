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

// UserRepo provides persistence for users and their bonus-credit pool.
// The pool invariant (bonus_credits >= 0) is enforced here with conditional
// UPDATEs rather than read-then-write, so concurrent spenders cannot drive
// the balance negative.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id, email, bonus_credits, is_admin, credits_reset_date, created_at`

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.BonusCredits, &u.IsAdmin, &u.CreditsResetDate, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE email = ? LIMIT 1`, email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id = ? LIMIT 1`, id))
}

// Create inserts a new user with an empty bonus pool and the given reset
// marker, and returns the stored row.  The email must already be
// sanitized.  A duplicate email maps to ErrEmailExists so the caller can
// fall back to the existing account (two concurrent signups race here).
func (r *UserRepo) Create(ctx context.Context, email string, resetDate time.Time) (model.User, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, bonus_credits, credits_reset_date) VALUES (?, ?, 0, ?)`,
		id, email, resetDate)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// GetBonusForUpdateTx reads a user's bonus pool under a row lock.  Booking
// and cancellation take this lock first so credit movements for one user
// are serialized; returns ErrNotFound when the user does not exist.
func (r *UserRepo) GetBonusForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (int, error) {
	var bonus int
	err := tx.QueryRowContext(ctx,
		`SELECT bonus_credits FROM users WHERE id = ? FOR UPDATE`, id).Scan(&bonus)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return bonus, err
}

// DeductBonusTx atomically removes amount from the user's bonus pool within
// the given transaction.  The decrement is conditional on the pool covering
// the amount; zero affected rows means another spender got there first and
// ErrInsufficientCredits is returned.  A zero amount is a no-op.
func (r *UserRepo) DeductBonusTx(ctx context.Context, tx *sql.Tx, id string, amount int) error {
	if amount == 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET bonus_credits = bonus_credits - ? WHERE id = ? AND bonus_credits >= ?`,
		amount, id, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

// RefundBonusTx returns amount to the user's bonus pool within the given
// transaction.  A zero amount is a no-op.
func (r *UserRepo) RefundBonusTx(ctx context.Context, tx *sql.Tx, id string, amount int) error {
	if amount == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET bonus_credits = bonus_credits + ? WHERE id = ?`, amount, id)
	return err
}

// ListDueForReset returns all users whose reset marker has elapsed,
// ordered by marker so the oldest debt is processed first.
func (r *UserRepo) ListDueForReset(ctx context.Context, now time.Time) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userCols+` FROM users WHERE credits_reset_date <= ? ORDER BY credits_reset_date`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.BonusCredits, &u.IsAdmin, &u.CreditsResetDate, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AdvanceResetDate moves a user's reset marker forward.  The reset job
// calls this per user and isolates failures so one bad record does not
// abort the batch.
func (r *UserRepo) AdvanceResetDate(ctx context.Context, id string, next time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET credits_reset_date = ? WHERE id = ?`, next, id)
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
