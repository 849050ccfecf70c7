package store

import (
	"context"
	"sync"

	"github.com/naruebet/cafe-reservation/internal/model"
)

// MemoryStore implements Store with in-memory maps guarded by a single
// mutex, which makes every Commit trivially atomic.  It backs the engine
// when no database is configured and serves as the test double.
type MemoryStore struct {
	mu           sync.RWMutex
	versions     map[string]uint64
	occupancy    map[string]model.DailyOccupancy
	reservations map[string]model.Reservation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		versions:     make(map[string]uint64),
		occupancy:    make(map[string]model.DailyOccupancy),
		reservations: make(map[string]model.Reservation),
	}
}

// ReadDay returns a deep copy so callers can mutate the snapshot freely.
func (m *MemoryStore) ReadDay(_ context.Context, date string) (DaySnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := DaySnapshot{Date: date, Version: m.versions[date]}
	if occ, ok := m.occupancy[date]; ok {
		snap.Occupancy = occ.Clone()
	} else {
		snap.Occupancy = model.DailyOccupancy{}
	}
	return snap, nil
}

// Commit validates every day version under the lock, then applies all
// merges and ledger writes.  Validation before mutation keeps a failed
// commit from applying partially.
func (m *MemoryStore) Commit(_ context.Context, set CommitSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, day := range set.Days {
		if m.versions[day.Date] != day.ExpectedVersion {
			return ErrVersionConflict
		}
	}
	for _, day := range set.Days {
		occ, ok := m.occupancy[day.Date]
		if !ok {
			occ = model.DailyOccupancy{}
			m.occupancy[day.Date] = occ
		}
		for tableID, entry := range day.Tables {
			if len(entry.Bookings) == 0 {
				delete(occ, tableID)
				continue
			}
			bookings := make([]model.Booking, len(entry.Bookings))
			copy(bookings, entry.Bookings)
			occ[tableID] = model.TableOccupancy{BookedPax: entry.BookedPax, Bookings: bookings}
		}
		m.versions[day.Date] = day.ExpectedVersion + 1
	}
	for _, res := range set.Reservations {
		m.reservations[res.ID] = res
	}
	return nil
}

func (m *MemoryStore) GetReservation(_ context.Context, id string) (*model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res, ok := m.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	out := res
	return &out, nil
}

func (m *MemoryStore) ListReservationsByUser(_ context.Context, userID string) ([]model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Reservation, 0)
	for _, res := range m.reservations {
		if res.UserID == userID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListReservations(_ context.Context) ([]model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Reservation, 0, len(m.reservations))
	for _, res := range m.reservations {
		out = append(out, res)
	}
	return out, nil
}

func (m *MemoryStore) DeleteReservationsBefore(_ context.Context, date string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id, res := range m.reservations {
		if res.Date < date {
			delete(m.reservations, id)
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) ReplaceOccupancy(_ context.Context, days map[string]model.DailyOccupancy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.occupancy = make(map[string]model.DailyOccupancy, len(days))
	for date, occ := range days {
		m.occupancy[date] = occ.Clone()
		m.versions[date]++
	}
	return nil
}
