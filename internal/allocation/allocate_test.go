package allocation

import (
	"reflect"
	"testing"

	"github.com/naruebet/cafe-reservation/internal/catalog"
	"github.com/naruebet/cafe-reservation/internal/model"
)

func mustCatalog(t *testing.T, units []model.TableUnit) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(units)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

// occWith builds an occupancy snapshot from tableID -> booked pax.
func occWith(booked map[string]int) model.DailyOccupancy {
	occ := model.DailyOccupancy{}
	for id, pax := range booked {
		occ[id] = model.TableOccupancy{
			BookedPax: pax,
			Bookings:  []model.Booking{{ReservationID: "r", Pax: pax}},
		}
	}
	return occ
}

func TestAllocateSingleTable(t *testing.T) {
	tests := []struct {
		name   string
		units  []model.TableUnit
		booked map[string]int
		pax    int
		want   []model.TableShare
	}{
		{
			name: "perfect fit preferred over larger table",
			units: []model.TableUnit{
				{ID: "small", Capacity: 1, Floor: 1},
				{ID: "big", Capacity: 4, Floor: 1},
			},
			pax:  1,
			want: []model.TableShare{{TableID: "small", Pax: 1}},
		},
		{
			name: "best fit minimizes leftover",
			units: []model.TableUnit{
				{ID: "six", Capacity: 6, Floor: 1},
				{ID: "four", Capacity: 4, Floor: 1},
			},
			pax:  3,
			want: []model.TableShare{{TableID: "four", Pax: 3}},
		},
		{
			name: "tie broken by catalog order",
			units: []model.TableUnit{
				{ID: "c1", Capacity: 4, Floor: 1},
				{ID: "c2", Capacity: 4, Floor: 1},
			},
			pax:  2,
			want: []model.TableShare{{TableID: "c1", Pax: 2}},
		},
		{
			name: "shares a partially booked table when nothing else fits",
			units: []model.TableUnit{
				{ID: "six", Capacity: 6, Floor: 1},
				{ID: "one-a", Capacity: 1, Floor: 1},
				{ID: "one-b", Capacity: 1, Floor: 1},
			},
			booked: map[string]int{"six": 2, "one-a": 1, "one-b": 1},
			pax:    1,
			want:   []model.TableShare{{TableID: "six", Pax: 1}},
		},
		{
			name: "remaining capacity counts, not raw capacity",
			units: []model.TableUnit{
				{ID: "six", Capacity: 6, Floor: 1},
				{ID: "four", Capacity: 4, Floor: 1},
			},
			booked: map[string]int{"four": 3},
			pax:    2,
			want:   []model.TableShare{{TableID: "six", Pax: 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := mustCatalog(t, tt.units)
			got, err := Allocate(cat, occWith(tt.booked), tt.pax)
			if err != nil {
				t.Fatalf("Allocate: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Allocate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllocateSameFloorSplitPreferred(t *testing.T) {
	// Party of 6 fits no single table.  Floor 2 alone can cover it, so the
	// split must stay on floor 2 even though floor 1 has free seats.
	cat := mustCatalog(t, []model.TableUnit{
		{ID: "1F-A", Capacity: 4, Floor: 1},
		{ID: "2F-A", Capacity: 4, Floor: 2},
		{ID: "2F-B", Capacity: 4, Floor: 2},
	})
	got, err := Allocate(cat, model.DailyOccupancy{}, 6)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	want := []model.TableShare{{TableID: "2F-A", Pax: 4}, {TableID: "2F-B", Pax: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Allocate = %v, want %v", got, want)
	}
}

func TestAllocateCrossFloorSplit(t *testing.T) {
	// Two 4-seat tables on different floors, 3 seats free each.  Neither
	// floor alone covers 6, so the split crosses floors, 3 seats from each.
	cat := mustCatalog(t, []model.TableUnit{
		{ID: "2F-C1", Capacity: 4, Floor: 2},
		{ID: "3F-G1", Capacity: 4, Floor: 3},
	})
	occ := occWith(map[string]int{"2F-C1": 1, "3F-G1": 1})
	got, err := Allocate(cat, occ, 6)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	want := []model.TableShare{{TableID: "2F-C1", Pax: 3}, {TableID: "3F-G1", Pax: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Allocate = %v, want %v", got, want)
	}
}

func TestAllocateLargePartyUsesDescendingCapacity(t *testing.T) {
	// 9 guests on the default layout: no single table fits, floor 2 covers
	// the party with its biggest tables first.
	cat := catalog.Default()
	got, err := Allocate(cat, model.DailyOccupancy{}, 9)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	want := []model.TableShare{
		{TableID: "2F-B1", Pax: 6},
		{TableID: "2F-C1", Pax: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Allocate = %v, want %v", got, want)
	}
}

func TestAllocateInsufficientCapacity(t *testing.T) {
	cat := mustCatalog(t, []model.TableUnit{
		{ID: "a", Capacity: 4, Floor: 1},
		{ID: "b", Capacity: 4, Floor: 2},
	})
	occ := occWith(map[string]int{"a": 2, "b": 1})
	if _, err := Allocate(cat, occ, 6); err != ErrInsufficientCapacity {
		t.Fatalf("Allocate error = %v, want ErrInsufficientCapacity", err)
	}
	// The snapshot must be untouched after a failed allocation.
	if occ.BookedPaxFor("a") != 2 || occ.BookedPaxFor("b") != 1 {
		t.Error("occupancy snapshot mutated by failed allocation")
	}
}

func TestAllocateDeterministic(t *testing.T) {
	cat := catalog.Default()
	occ := occWith(map[string]int{"2F-B1": 2, "2F-A1": 1, "3F-G1": 4})
	first, err := Allocate(cat, occ, 5)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := Allocate(cat, occ, 5)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, again, first)
		}
	}
}

func TestFeasible(t *testing.T) {
	cat := mustCatalog(t, []model.TableUnit{
		{ID: "a", Capacity: 4, Floor: 1},
		{ID: "b", Capacity: 1, Floor: 1},
	})
	tests := []struct {
		name   string
		booked map[string]int
		pax    int
		want   bool
	}{
		{"empty fits total", nil, 5, true},
		{"over total", nil, 6, false},
		{"fragmented capacity still feasible", map[string]int{"a": 2}, 3, true},
		{"full house", map[string]int{"a": 4, "b": 1}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Feasible(cat, occWith(tt.booked), tt.pax); got != tt.want {
				t.Errorf("Feasible = %v, want %v", got, tt.want)
			}
		})
	}
}
