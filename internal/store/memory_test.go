package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naruebet/cafe-reservation/internal/model"
)

func booking(resID string, pax int) model.Booking {
	return model.Booking{ReservationID: resID, Name: "n", Pax: pax, Time: "18:00"}
}

func TestMemoryStoreReadDayEmpty(t *testing.T) {
	m := NewMemoryStore()
	snap, err := m.ReadDay(context.Background(), "2026-09-10")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), snap.Version)
	assert.Empty(t, snap.Occupancy)
}

func TestMemoryStoreCommitMergesTouchedTablesOnly(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Commit(ctx, CommitSet{Days: []DayWrite{{
		Date:            "2026-09-10",
		ExpectedVersion: 0,
		Tables: map[string]model.TableOccupancy{
			"2F-B1": {BookedPax: 2, Bookings: []model.Booking{booking("r1", 2)}},
			"2F-C1": {BookedPax: 4, Bookings: []model.Booking{booking("r1", 4)}},
		},
	}}}))

	// A second commit touching only 2F-B1 must leave 2F-C1 as it was.
	snap, err := m.ReadDay(ctx, "2026-09-10")
	require.NoError(t, err)
	require.Equal(t, uint64(1), snap.Version)

	require.NoError(t, m.Commit(ctx, CommitSet{Days: []DayWrite{{
		Date:            "2026-09-10",
		ExpectedVersion: snap.Version,
		Tables: map[string]model.TableOccupancy{
			"2F-B1": {BookedPax: 3, Bookings: []model.Booking{booking("r1", 2), booking("r2", 1)}},
		},
	}}}))

	snap, err = m.ReadDay(ctx, "2026-09-10")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, 3, snap.Occupancy.BookedPaxFor("2F-B1"))
	assert.Equal(t, 4, snap.Occupancy.BookedPaxFor("2F-C1"))
}

func TestMemoryStoreCommitRemovesEmptiedTables(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Commit(ctx, CommitSet{Days: []DayWrite{{
		Date: "2026-09-10",
		Tables: map[string]model.TableOccupancy{
			"2F-A1": {BookedPax: 1, Bookings: []model.Booking{booking("r1", 1)}},
		},
	}}}))
	require.NoError(t, m.Commit(ctx, CommitSet{Days: []DayWrite{{
		Date:            "2026-09-10",
		ExpectedVersion: 1,
		Tables:          map[string]model.TableOccupancy{"2F-A1": {}},
	}}}))

	snap, err := m.ReadDay(ctx, "2026-09-10")
	require.NoError(t, err)
	_, present := snap.Occupancy["2F-A1"]
	assert.False(t, present)
}

func TestMemoryStoreCommitVersionConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	write := func(expected uint64) error {
		return m.Commit(ctx, CommitSet{Days: []DayWrite{{
			Date:            "2026-09-10",
			ExpectedVersion: expected,
			Tables: map[string]model.TableOccupancy{
				"2F-A1": {BookedPax: 1, Bookings: []model.Booking{booking("r1", 1)}},
			},
		}}})
	}
	require.NoError(t, write(0))
	assert.ErrorIs(t, write(0), ErrVersionConflict)
	assert.NoError(t, write(1))
}

func TestMemoryStoreConflictAppliesNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	err := m.Commit(ctx, CommitSet{
		Days: []DayWrite{{
			Date:            "2026-09-10",
			ExpectedVersion: 7, // wrong on purpose
			Tables: map[string]model.TableOccupancy{
				"2F-A1": {BookedPax: 1, Bookings: []model.Booking{booking("r1", 1)}},
			},
		}},
		Reservations: []model.Reservation{{ID: "r1", UserID: "u1", Date: "2026-09-10", Status: model.StatusConfirmed}},
	})
	require.ErrorIs(t, err, ErrVersionConflict)

	_, err = m.GetReservation(ctx, "r1")
	assert.ErrorIs(t, err, ErrReservationNotFound, "ledger write must not land when the day write fails")
}

func TestMemoryStoreConcurrentCommitsOneWinnerPerVersion(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	snap, err := m.ReadDay(ctx, "2026-09-10")
	require.NoError(t, err)

	const writers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Commit(ctx, CommitSet{Days: []DayWrite{{
				Date:            "2026-09-10",
				ExpectedVersion: snap.Version,
				Tables: map[string]model.TableOccupancy{
					"2F-B1": {BookedPax: 1, Bookings: []model.Booking{booking("r", 1)}},
				},
			}}})
			if err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)
	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one writer may commit against a given version")
}

func TestMemoryStoreReservationLedger(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	put := func(id, user, date string) {
		require.NoError(t, m.Commit(ctx, CommitSet{Reservations: []model.Reservation{{
			ID: id, UserID: user, Date: date, Time: "12:00", Pax: 2, Status: model.StatusConfirmed,
		}}}))
	}
	put("r1", "u1", "2026-09-10")
	put("r2", "u1", "2026-09-12")
	put("r3", "u2", "2026-08-01")

	res, err := m.GetReservation(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-12", res.Date)

	mine, err := m.ListReservationsByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := m.ListReservations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	purged, err := m.DeleteReservationsBefore(ctx, "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	_, err = m.GetReservation(ctx, "r3")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestMemoryStoreReplaceOccupancy(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Commit(ctx, CommitSet{Days: []DayWrite{{
		Date: "2026-09-10",
		Tables: map[string]model.TableOccupancy{
			"2F-A1": {BookedPax: 1, Bookings: []model.Booking{booking("stale", 1)}},
		},
	}}}))

	rebuilt := map[string]model.DailyOccupancy{
		"2026-09-11": {
			"2F-C1": {BookedPax: 4, Bookings: []model.Booking{booking("r9", 4)}},
		},
	}
	require.NoError(t, m.ReplaceOccupancy(ctx, rebuilt))

	old, err := m.ReadDay(ctx, "2026-09-10")
	require.NoError(t, err)
	assert.Empty(t, old.Occupancy, "stale day must be wiped")

	fresh, err := m.ReadDay(ctx, "2026-09-11")
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.Occupancy.BookedPaxFor("2F-C1"))
}
