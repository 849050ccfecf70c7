// Package store persists the reservation ledger and the per-date
// occupancy documents, and provides the atomic commit primitive the
// transactional coordinator builds on.  Two implementations exist: a
// MySQL store for production and an in-memory store used when no
// database is configured and throughout the test suites.
package store

import (
	"context"
	"errors"

	"github.com/naruebet/cafe-reservation/internal/model"
)

// ErrVersionConflict is returned by Commit when a day touched by the
// commit was modified after its snapshot was read.  The caller re-reads
// and retries.
var ErrVersionConflict = errors.New("occupancy version conflict")

// ErrReservationNotFound is returned when no reservation exists for the
// requested ID.
var ErrReservationNotFound = errors.New("reservation not found")

// DaySnapshot is one date's occupancy together with the version observed
// at read time.  Version 0 means the day has no document yet.
type DaySnapshot struct {
	Date      string
	Version   uint64
	Occupancy model.DailyOccupancy
}

// DayWrite merges per-table entries into one date's occupancy document.
// Only the tables present in the map are written; every other table on
// that date is left untouched.  A table whose entry has no bookings is
// removed from the document.  ExpectedVersion must match the version the
// snapshot was read at (0 for a day that did not exist).
type DayWrite struct {
	Date            string
	ExpectedVersion uint64
	Tables          map[string]model.TableOccupancy
}

// CommitSet is the unit of atomicity: all day merges and all ledger
// writes land together or not at all.
type CommitSet struct {
	Days         []DayWrite
	Reservations []model.Reservation
}

// Store is the persistence contract used by the engine.  Implementations
// must be safe for concurrent use.
type Store interface {
	// ReadDay returns the occupancy snapshot for a date, with an empty
	// map and version 0 when no document exists yet.
	ReadDay(ctx context.Context, date string) (DaySnapshot, error)

	// Commit applies the set atomically.  It returns ErrVersionConflict
	// when any day's version moved since its snapshot was read, in which
	// case nothing is applied.
	Commit(ctx context.Context, set CommitSet) error

	// GetReservation returns one reservation by ID, or
	// ErrReservationNotFound.
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)

	// ListReservationsByUser returns every reservation owned by the user,
	// in unspecified order.
	ListReservationsByUser(ctx context.Context, userID string) ([]model.Reservation, error)

	// ListReservations returns every reservation, in unspecified order.
	ListReservations(ctx context.Context) ([]model.Reservation, error)

	// DeleteReservationsBefore removes every reservation dated strictly
	// before the given date and returns the number removed.
	DeleteReservationsBefore(ctx context.Context, date string) (int, error)

	// ReplaceOccupancy discards every occupancy document and installs the
	// given ones.  Used by the reconciliation path only.
	ReplaceOccupancy(ctx context.Context, days map[string]model.DailyOccupancy) error
}
