package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naruebet/cafe-reservation/internal/allocation"
	"github.com/naruebet/cafe-reservation/internal/catalog"
	"github.com/naruebet/cafe-reservation/internal/model"
	"github.com/naruebet/cafe-reservation/internal/store"
)

// maxTxAttempts bounds the optimistic retry loop.  Each attempt re-reads
// the day snapshot and re-runs allocation, so a retry always decides
// against fresh state.
const maxTxAttempts = 5

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Engine implements the reservation command surface on top of a Store
// and the fixed table catalog.  All methods are safe for concurrent use;
// per-date serialization comes from the store's version check, not from
// locks held here.
type Engine struct {
	cat *catalog.Catalog
	st  store.Store
	log *zap.Logger

	// Overridable in tests.
	attempts int
	now      func() time.Time
	newID    func() string
}

// New constructs an Engine.  The logger must be non-nil; pass zap.NewNop()
// to silence it.
func New(cat *catalog.Catalog, st store.Store, log *zap.Logger) *Engine {
	return &Engine{
		cat:      cat,
		st:       st,
		log:      log,
		attempts: maxTxAttempts,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Catalog returns the table catalog the engine allocates against.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// CreateRequest carries the inputs for a new booking.
type CreateRequest struct {
	UserID string
	Name   string
	Phone  string
	Date   string
	Time   string
	Pax    int
}

// CreateResult reports the committed assignment.
type CreateResult struct {
	ReservationID string             `json:"reservation_id"`
	TableIDs      []string           `json:"table_ids"`
	Tables        []model.TableShare `json:"tables"`
}

// CheckAvailability reports whether a party of pax guests can be seated
// on the given date.  Read-only; it runs the allocator's feasibility test
// without committing anything.
func (e *Engine) CheckAvailability(ctx context.Context, date, timeStr string, pax int) (bool, error) {
	if err := validateSlot(date, timeStr, pax); err != nil {
		return false, err
	}
	snap, err := e.st.ReadDay(ctx, date)
	if err != nil {
		return false, storageErr("read occupancy", err)
	}
	return allocation.Feasible(e.cat, snap.Occupancy, pax), nil
}

// CreateReservation allocates tables for the party and commits the new
// reservation plus the occupancy delta atomically.  Returns
// ErrUnavailable when capacity is exhausted and ErrContention when the
// day document stayed contended past the retry budget.
func (e *Engine) CreateReservation(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := validateSlot(req.Date, req.Time, req.Pax); err != nil {
		return nil, err
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidInput)
	}

	for attempt := 1; attempt <= e.attempts; attempt++ {
		snap, err := e.st.ReadDay(ctx, req.Date)
		if err != nil {
			return nil, storageErr("read occupancy", err)
		}

		shares, err := allocation.Allocate(e.cat, snap.Occupancy, req.Pax)
		if errors.Is(err, allocation.ErrInsufficientCapacity) {
			// Expected outcome: abort cleanly, never retry, mutate nothing.
			return nil, fmt.Errorf("%w: no capacity for %d pax on %s", ErrUnavailable, req.Pax, req.Date)
		}
		if err != nil {
			return nil, err
		}

		now := e.now()
		res := model.Reservation{
			ID:        e.newID(),
			UserID:    req.UserID,
			Name:      req.Name,
			Phone:     req.Phone,
			Date:      req.Date,
			Time:      req.Time,
			Pax:       req.Pax,
			Tables:    shares,
			Status:    model.StatusConfirmed,
			CreatedAt: now,
			UpdatedAt: now,
		}

		occ := snap.Occupancy
		touched := make(map[string]model.TableOccupancy, len(shares))
		for _, s := range shares {
			occ.Add(s.TableID, model.Booking{
				ReservationID: res.ID,
				Name:          res.Name,
				Pax:           s.Pax,
				Time:          res.Time,
			})
			touched[s.TableID] = occ[s.TableID]
		}
		day := store.DayWrite{Date: req.Date, ExpectedVersion: snap.Version, Tables: touched}
		if err := e.checkCapacity(day); err != nil {
			return nil, err
		}

		err = e.st.Commit(ctx, store.CommitSet{
			Days:         []store.DayWrite{day},
			Reservations: []model.Reservation{res},
		})
		if errors.Is(err, store.ErrVersionConflict) {
			e.log.Debug("booking commit conflicted, retrying",
				zap.String("date", req.Date), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, storageErr("commit booking", err)
		}

		e.log.Info("reservation created",
			zap.String("reservation_id", res.ID),
			zap.String("date", res.Date),
			zap.Int("pax", res.Pax),
			zap.Strings("tables", res.TableIDs()))
		return &CreateResult{ReservationID: res.ID, TableIDs: res.TableIDs(), Tables: shares}, nil
	}
	return nil, fmt.Errorf("%w: booking on %s", ErrContention, req.Date)
}

// GetUserReservations returns the user's active reservations sorted by
// date then time ascending.  Past dates are filtered out unless
// includePast is set.
func (e *Engine) GetUserReservations(ctx context.Context, userID string, includePast bool) ([]model.Reservation, error) {
	list, err := e.st.ListReservationsByUser(ctx, userID)
	if err != nil {
		return nil, storageErr("list reservations", err)
	}
	return e.filterSort(list, includePast), nil
}

// GetAllReservations returns every active reservation for the admin
// view, sorted by date then time ascending.
func (e *Engine) GetAllReservations(ctx context.Context, includePast bool) ([]model.Reservation, error) {
	list, err := e.st.ListReservations(ctx)
	if err != nil {
		return nil, storageErr("list reservations", err)
	}
	return e.filterSort(list, includePast), nil
}

// ModifyReservation moves a reservation to a new date/time.  Within one
// transaction it verifies ownership, allocates on the target date,
// releases the old tables and rewrites the ledger record.  An identical
// target slot only refreshes metadata.
func (e *Engine) ModifyReservation(ctx context.Context, id, newDate, newTime, requestingUserID string, isAdmin bool) error {
	if err := validateSlot(newDate, newTime, 1); err != nil {
		return err
	}

	for attempt := 1; attempt <= e.attempts; attempt++ {
		res, err := e.loadActive(ctx, id)
		if err != nil {
			return err
		}
		if !isAdmin && res.UserID != requestingUserID {
			return fmt.Errorf("%w: reservation %s", ErrPermissionDenied, id)
		}

		if res.Date == newDate && res.Time == newTime {
			// Same slot: metadata refresh only, no occupancy change.
			res.UpdatedAt = e.now()
			if err := e.st.Commit(ctx, store.CommitSet{Reservations: []model.Reservation{*res}}); err != nil {
				return storageErr("commit modification", err)
			}
			return nil
		}

		set, err := e.buildMoveCommit(ctx, res, newDate, newTime)
		if err != nil {
			return err
		}
		err = e.st.Commit(ctx, *set)
		if errors.Is(err, store.ErrVersionConflict) {
			e.log.Debug("modification commit conflicted, retrying",
				zap.String("reservation_id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return storageErr("commit modification", err)
		}
		e.log.Info("reservation modified",
			zap.String("reservation_id", id),
			zap.String("date", newDate), zap.String("time", newTime))
		return nil
	}
	return fmt.Errorf("%w: modification of %s", ErrContention, id)
}

// buildMoveCommit assembles the atomic release-and-reallocate set for a
// date/time move.  When the move stays on the same date, release happens
// before allocation on one shared snapshot so the party may end up back
// on its own tables.
func (e *Engine) buildMoveCommit(ctx context.Context, res *model.Reservation, newDate, newTime string) (*store.CommitSet, error) {
	oldSnap, err := e.st.ReadDay(ctx, res.Date)
	if err != nil {
		return nil, storageErr("read occupancy", err)
	}
	newSnap := oldSnap
	sameDate := res.Date == newDate
	if !sameDate {
		if newSnap, err = e.st.ReadDay(ctx, newDate); err != nil {
			return nil, storageErr("read occupancy", err)
		}
	}

	oldTouched := make(map[string]model.TableOccupancy, len(res.Tables))
	for _, s := range res.Tables {
		oldSnap.Occupancy.Release(s.TableID, res.ID)
	}
	for _, s := range res.Tables {
		oldTouched[s.TableID] = oldSnap.Occupancy[s.TableID]
	}

	target := newSnap.Occupancy
	if sameDate {
		target = oldSnap.Occupancy
	}
	shares, err := allocation.Allocate(e.cat, target, res.Pax)
	if errors.Is(err, allocation.ErrInsufficientCapacity) {
		return nil, fmt.Errorf("%w: no capacity for %d pax on %s", ErrUnavailable, res.Pax, newDate)
	}
	if err != nil {
		return nil, err
	}

	newTouched := make(map[string]model.TableOccupancy, len(shares))
	for _, s := range shares {
		target.Add(s.TableID, model.Booking{
			ReservationID: res.ID,
			Name:          res.Name,
			Pax:           s.Pax,
			Time:          newTime,
		})
		newTouched[s.TableID] = target[s.TableID]
	}

	res.Date = newDate
	res.Time = newTime
	res.Tables = shares
	res.UpdatedAt = e.now()

	var days []store.DayWrite
	if sameDate {
		// One day document: fold released and allocated tables together.
		for id, entry := range newTouched {
			oldTouched[id] = entry
		}
		days = []store.DayWrite{{Date: res.Date, ExpectedVersion: oldSnap.Version, Tables: oldTouched}}
	} else {
		days = []store.DayWrite{
			{Date: oldSnap.Date, ExpectedVersion: oldSnap.Version, Tables: oldTouched},
			{Date: newDate, ExpectedVersion: newSnap.Version, Tables: newTouched},
		}
	}
	for _, day := range days {
		if err := e.checkCapacity(day); err != nil {
			return nil, err
		}
	}
	return &store.CommitSet{Days: days, Reservations: []model.Reservation{*res}}, nil
}

// CancelReservation releases the reservation's tables and marks it
// cancelled, a terminal state.  Ownership is enforced the same way as
// for modification.  The cancelled record is returned so callers can
// publish notifications.
func (e *Engine) CancelReservation(ctx context.Context, id, requestingUserID string, isAdmin bool) (*model.Reservation, error) {
	for attempt := 1; attempt <= e.attempts; attempt++ {
		res, err := e.loadActive(ctx, id)
		if err != nil {
			return nil, err
		}
		if !isAdmin && res.UserID != requestingUserID {
			return nil, fmt.Errorf("%w: reservation %s", ErrPermissionDenied, id)
		}

		snap, err := e.st.ReadDay(ctx, res.Date)
		if err != nil {
			return nil, storageErr("read occupancy", err)
		}
		touched := make(map[string]model.TableOccupancy, len(res.Tables))
		for _, s := range res.Tables {
			snap.Occupancy.Release(s.TableID, res.ID)
		}
		for _, s := range res.Tables {
			touched[s.TableID] = snap.Occupancy[s.TableID]
		}

		res.Status = model.StatusCancelled
		res.UpdatedAt = e.now()

		err = e.st.Commit(ctx, store.CommitSet{
			Days:         []store.DayWrite{{Date: res.Date, ExpectedVersion: snap.Version, Tables: touched}},
			Reservations: []model.Reservation{*res},
		})
		if errors.Is(err, store.ErrVersionConflict) {
			e.log.Debug("cancellation commit conflicted, retrying",
				zap.String("reservation_id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, storageErr("commit cancellation", err)
		}
		e.log.Info("reservation cancelled", zap.String("reservation_id", id))
		return res, nil
	}
	return nil, fmt.Errorf("%w: cancellation of %s", ErrContention, id)
}

// PurgePastReservations bulk-deletes reservations dated before today and
// returns the count.  Past-date occupancy documents are left alone; they
// are never queried again and RebuildOccupancy clears them if strict
// history is wanted.
func (e *Engine) PurgePastReservations(ctx context.Context) (int, error) {
	today := e.now().Format(dateLayout)
	count, err := e.st.DeleteReservationsBefore(ctx, today)
	if err != nil {
		return 0, storageErr("purge reservations", err)
	}
	if count > 0 {
		e.log.Info("purged past reservations", zap.Int("count", count))
	}
	return count, nil
}

// GetDailyOccupancySnapshot returns the occupancy document for a date,
// empty when nothing is booked.  Read-only, for seating-map rendering.
func (e *Engine) GetDailyOccupancySnapshot(ctx context.Context, date string) (model.DailyOccupancy, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
	}
	snap, err := e.st.ReadDay(ctx, date)
	if err != nil {
		return nil, storageErr("read occupancy", err)
	}
	return snap.Occupancy, nil
}

// RebuildOccupancy re-derives every occupancy document from the
// confirmed reservations in the ledger and installs the result, wiping
// whatever the documents held before.  This is the repair path for state
// that drifted or for clearing occupancy of purged dates.  It returns
// the number of dates rebuilt.
func (e *Engine) RebuildOccupancy(ctx context.Context) (int, error) {
	list, err := e.st.ListReservations(ctx)
	if err != nil {
		return 0, storageErr("list reservations", err)
	}

	days := make(map[string]model.DailyOccupancy)
	for _, res := range list {
		if res.Status != model.StatusConfirmed {
			continue
		}
		occ, ok := days[res.Date]
		if !ok {
			occ = model.DailyOccupancy{}
			days[res.Date] = occ
		}
		for _, s := range res.Tables {
			occ.Add(s.TableID, model.Booking{
				ReservationID: res.ID,
				Name:          res.Name,
				Pax:           s.Pax,
				Time:          res.Time,
			})
		}
	}
	for date, occ := range days {
		for tableID, entry := range occ {
			if unit, ok := e.cat.Get(tableID); !ok || entry.BookedPax > unit.Capacity {
				e.log.Warn("rebuilt occupancy exceeds table capacity",
					zap.String("date", date), zap.String("table", tableID),
					zap.Int("booked_pax", entry.BookedPax))
			}
		}
	}

	if err := e.st.ReplaceOccupancy(ctx, days); err != nil {
		return 0, storageErr("replace occupancy", err)
	}
	e.log.Info("occupancy rebuilt from ledger", zap.Int("dates", len(days)))
	return len(days), nil
}

// loadActive fetches a reservation and treats cancelled records as gone.
func (e *Engine) loadActive(ctx context.Context, id string) (*model.Reservation, error) {
	res, err := e.st.GetReservation(ctx, id)
	if errors.Is(err, store.ErrReservationNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("load reservation", err)
	}
	if res.Status == model.StatusCancelled {
		// Terminal state: a cancelled reservation behaves as removed.
		return nil, fmt.Errorf("%w: %s is cancelled", ErrNotFound, id)
	}
	return res, nil
}

// checkCapacity asserts the per-table invariant on a pending write.  The
// allocator never exceeds capacity, so a violation here means corrupted
// inputs and the commit must not proceed.
func (e *Engine) checkCapacity(day store.DayWrite) error {
	for tableID, entry := range day.Tables {
		unit, ok := e.cat.Get(tableID)
		if !ok {
			return fmt.Errorf("%w: unknown table %s", ErrInvalidInput, tableID)
		}
		if entry.BookedPax > unit.Capacity {
			return fmt.Errorf("table %s would hold %d of %d seats on %s",
				tableID, entry.BookedPax, unit.Capacity, day.Date)
		}
		sum := 0
		for _, b := range entry.Bookings {
			sum += b.Pax
		}
		if sum != entry.BookedPax {
			return fmt.Errorf("table %s booked_pax %d disagrees with bookings sum %d",
				tableID, entry.BookedPax, sum)
		}
	}
	return nil
}

func (e *Engine) filterSort(list []model.Reservation, includePast bool) []model.Reservation {
	today := e.now().Format(dateLayout)
	out := make([]model.Reservation, 0, len(list))
	for _, res := range list {
		if res.Status == model.StatusCancelled {
			continue
		}
		if !includePast && res.Date < today {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

func validateSlot(date, timeStr string, pax int) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
	}
	if _, err := time.Parse(timeLayout, timeStr); err != nil {
		return fmt.Errorf("%w: bad time %q", ErrInvalidInput, timeStr)
	}
	if pax < 1 {
		return fmt.Errorf("%w: party size %d", ErrInvalidInput, pax)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStorageUnavailable, err))
}
