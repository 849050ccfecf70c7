// Package allocation decides which table or tables seat a party of a
// given size against a snapshot of one day's occupancy.  The allocator is
// a pure function: it never mutates the snapshot, and identical inputs
// always yield identical assignments, so a transaction that retries after
// a conflict recomputes the same decision against the fresh snapshot.
package allocation

import (
	"errors"

	"github.com/naruebet/cafe-reservation/internal/catalog"
	"github.com/naruebet/cafe-reservation/internal/model"
)

// ErrInsufficientCapacity is returned when the remaining capacity across
// every table cannot seat the party.  Callers must not mutate any state
// when they receive it.
var ErrInsufficientCapacity = errors.New("insufficient capacity")

// Allocate assigns tables to a party of pax guests.
//
// Policy, in order:
//  1. Single-table best fit: among tables whose remaining capacity covers
//     the whole party, pick the one leaving the fewest empty seats.  Ties
//     go to catalog order; a perfect fit ends the search immediately.
//  2. Same-floor split: if no single table suffices, try each floor in
//     preference order and greedily consume its tables by descending
//     capacity until the party is covered.  The first floor that can take
//     the whole party wins, keeping the group physically together.
//  3. Cross-floor split: greedy descending consumption over the whole
//     catalog, ignoring floors.
//  4. ErrInsufficientCapacity.
func Allocate(cat *catalog.Catalog, occ model.DailyOccupancy, pax int) ([]model.TableShare, error) {
	if best, ok := bestSingle(cat.Units(), occ, pax); ok {
		return []model.TableShare{{TableID: best, Pax: pax}}, nil
	}
	for _, floor := range cat.Floors() {
		if shares, ok := greedy(catalog.ByCapacityDesc(cat.FloorUnits(floor)), occ, pax); ok {
			return shares, nil
		}
	}
	if shares, ok := greedy(catalog.ByCapacityDesc(cat.Units()), occ, pax); ok {
		return shares, nil
	}
	return nil, ErrInsufficientCapacity
}

// Feasible reports whether a party of pax guests can be seated at all.
// Because the split fallbacks may consume arbitrary fragments, a party
// fits exactly when the total remaining capacity covers it.
func Feasible(cat *catalog.Catalog, occ model.DailyOccupancy, pax int) bool {
	remaining := 0
	for _, u := range cat.Units() {
		if r := u.Capacity - occ.BookedPaxFor(u.ID); r > 0 {
			remaining += r
		}
	}
	return remaining >= pax
}

// bestSingle scans units in catalog order for the table minimizing
// leftover seats after taking the whole party.  Strict improvement keeps
// the first of equally good candidates, which is the catalog-order tie
// break.
func bestSingle(units []model.TableUnit, occ model.DailyOccupancy, pax int) (string, bool) {
	best := ""
	bestLeft := -1
	for _, u := range units {
		remaining := u.Capacity - occ.BookedPaxFor(u.ID)
		if remaining < pax {
			continue
		}
		left := remaining - pax
		if left == 0 {
			return u.ID, true
		}
		if best == "" || left < bestLeft {
			best = u.ID
			bestLeft = left
		}
	}
	return best, best != ""
}

// greedy consumes the given units in order, taking as many seats from
// each as the party still needs, and reports whether demand reached zero.
func greedy(units []model.TableUnit, occ model.DailyOccupancy, pax int) ([]model.TableShare, bool) {
	var shares []model.TableShare
	need := pax
	for _, u := range units {
		if need <= 0 {
			break
		}
		remaining := u.Capacity - occ.BookedPaxFor(u.ID)
		if remaining <= 0 {
			continue
		}
		take := remaining
		if need < take {
			take = need
		}
		shares = append(shares, model.TableShare{TableID: u.ID, Pax: take})
		need -= take
	}
	if need > 0 {
		return nil, false
	}
	return shares, true
}
