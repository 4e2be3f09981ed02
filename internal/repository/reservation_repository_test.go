package repository

import (
	"database/sql"
	"errors"
	"testing"
)

func TestLockConflictDetection(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"deadlock victim", errors.New("Error 1213 (40001): Deadlock found when trying to get lock; try restarting transaction"), true},
		{"lock wait timeout", errors.New("Error 1205 (HY000): Lock wait timeout exceeded; try restarting transaction"), true},
		{"duplicate key", errors.New("Error 1062 (23000): Duplicate entry 'x' for key 'PRIMARY'"), false},
		{"no rows", sql.ErrNoRows, false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := isLockConflict(tc.err); got != tc.want {
			t.Errorf("%s: isLockConflict = %v, want %v", tc.name, got, tc.want)
		}
	}
}
