// Package catalog holds the fixed set of seating units the cafe operates.
// The layout is hand-specified at deploy time; the engine never mutates it
// and therefore reads it without synchronization.
package catalog

import (
	"fmt"
	"sort"

	"github.com/naruebet/cafe-reservation/internal/model"
)

// Catalog is an ordered, immutable collection of table units.  Iteration
// helpers return tables in fixed orders so that allocation decisions are
// deterministic for a given occupancy state.
type Catalog struct {
	units  []model.TableUnit
	byID   map[string]model.TableUnit
	floors []int
}

// New validates the given units and builds a catalog preserving their
// order.  It rejects duplicate IDs and capacities below one.
func New(units []model.TableUnit) (*Catalog, error) {
	c := &Catalog{
		units: make([]model.TableUnit, len(units)),
		byID:  make(map[string]model.TableUnit, len(units)),
	}
	copy(c.units, units)
	seenFloors := map[int]bool{}
	for _, u := range c.units {
		if u.ID == "" {
			return nil, fmt.Errorf("catalog: table with empty id")
		}
		if u.Capacity < 1 {
			return nil, fmt.Errorf("catalog: table %s has capacity %d", u.ID, u.Capacity)
		}
		if _, dup := c.byID[u.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate table id %s", u.ID)
		}
		c.byID[u.ID] = u
		if !seenFloors[u.Floor] {
			seenFloors[u.Floor] = true
			c.floors = append(c.floors, u.Floor)
		}
	}
	if len(c.units) == 0 {
		return nil, fmt.Errorf("catalog: no tables")
	}
	// Floor preference order is ascending floor number.
	sort.Ints(c.floors)
	return c, nil
}

// Default returns the reference deployment layout: fifteen tables across
// the second and third floors with capacities 1, 4 and 6.
func Default() *Catalog {
	c, err := New([]model.TableUnit{
		{ID: "2F-B1", Capacity: 6, Floor: 2},
		{ID: "2F-A1", Capacity: 1, Floor: 2},
		{ID: "2F-A2", Capacity: 1, Floor: 2},
		{ID: "2F-A3", Capacity: 1, Floor: 2},
		{ID: "2F-A4", Capacity: 1, Floor: 2},
		{ID: "2F-C1", Capacity: 4, Floor: 2},
		{ID: "2F-D1", Capacity: 4, Floor: 2},
		{ID: "3F-F1", Capacity: 6, Floor: 3},
		{ID: "3F-E1", Capacity: 1, Floor: 3},
		{ID: "3F-E2", Capacity: 1, Floor: 3},
		{ID: "3F-E3", Capacity: 1, Floor: 3},
		{ID: "3F-E4", Capacity: 1, Floor: 3},
		{ID: "3F-G1", Capacity: 4, Floor: 3},
		{ID: "3F-H1", Capacity: 4, Floor: 3},
		{ID: "3F-I1", Capacity: 4, Floor: 3},
	})
	if err != nil {
		panic(err) // the reference layout is a compile-time constant
	}
	return c
}

// Units returns the tables in catalog order.  The returned slice is a
// copy and may be modified by the caller.
func (c *Catalog) Units() []model.TableUnit {
	out := make([]model.TableUnit, len(c.units))
	copy(out, c.units)
	return out
}

// Get returns the table with the given ID.
func (c *Catalog) Get(id string) (model.TableUnit, bool) {
	u, ok := c.byID[id]
	return u, ok
}

// Len returns the number of tables in the catalog.
func (c *Catalog) Len() int { return len(c.units) }

// Floors returns the distinct floors in preference order (ascending).
func (c *Catalog) Floors() []int {
	out := make([]int, len(c.floors))
	copy(out, c.floors)
	return out
}

// FloorUnits returns the tables on the given floor in catalog order.
func (c *Catalog) FloorUnits(floor int) []model.TableUnit {
	var out []model.TableUnit
	for _, u := range c.units {
		if u.Floor == floor {
			out = append(out, u)
		}
	}
	return out
}

// ByCapacityDesc returns the given tables sorted by capacity descending.
// The sort is stable so equal capacities keep catalog order.
func ByCapacityDesc(units []model.TableUnit) []model.TableUnit {
	out := make([]model.TableUnit, len(units))
	copy(out, units)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Capacity > out[j].Capacity })
	return out
}

// TotalCapacity returns the summed capacity of every table.
func (c *Catalog) TotalCapacity() int {
	total := 0
	for _, u := range c.units {
		total += u.Capacity
	}
	return total
}
