// Package repository implements the storage layer over MySQL.  This file
// defines the sentinel errors shared by the repositories so handlers can
// translate storage outcomes into HTTP status codes with errors.Is instead
// of inspecting driver-specific codes.  Driver errors never escape this
// package undisguised: duplicate keys and overlap-guard failures are mapped
// here, everything else is surfaced as-is for the handlers' 500 path.
package repository

import "errors"

// ErrNotFound is returned when a looked-up row does not exist.  Handlers
// translate it into a 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when inserting a user whose email is already
// taken.  The user handler treats it as "return the existing user".
var ErrEmailExists = errors.New("email already exists")

// ErrSlotTaken is returned by the guarded reservation insert when the
// requested interval overlaps an existing confirmed reservation for the
// same facility.  Handlers translate it into a 409 conflict.
var ErrSlotTaken = errors.New("time slot unavailable")

// ErrInsufficientCredits is returned when the conditional bonus-pool
// decrement affects no rows, meaning the pool no longer covers the draw.
// Handlers translate it into a 400 response.
var ErrInsufficientCredits = errors.New("insufficient credits")
