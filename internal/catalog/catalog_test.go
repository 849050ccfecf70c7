package catalog

import (
	"testing"

	"github.com/naruebet/cafe-reservation/internal/model"
)

func TestNewRejectsBadLayouts(t *testing.T) {
	tests := []struct {
		name  string
		units []model.TableUnit
	}{
		{"empty", nil},
		{"zero capacity", []model.TableUnit{{ID: "a", Capacity: 0, Floor: 1}}},
		{"empty id", []model.TableUnit{{ID: "", Capacity: 2, Floor: 1}}},
		{"duplicate id", []model.TableUnit{
			{ID: "a", Capacity: 2, Floor: 1},
			{ID: "a", Capacity: 4, Floor: 2},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.units); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestDefaultLayout(t *testing.T) {
	c := Default()
	if c.Len() != 15 {
		t.Errorf("Len = %d, want 15", c.Len())
	}
	if got := c.TotalCapacity(); got != 40 {
		t.Errorf("TotalCapacity = %d, want 40", got)
	}
	floors := c.Floors()
	if len(floors) != 2 || floors[0] != 2 || floors[1] != 3 {
		t.Errorf("Floors = %v, want [2 3]", floors)
	}
	if len(c.FloorUnits(2)) != 7 || len(c.FloorUnits(3)) != 8 {
		t.Errorf("floor unit counts = %d/%d, want 7/8",
			len(c.FloorUnits(2)), len(c.FloorUnits(3)))
	}
}

func TestByCapacityDescStable(t *testing.T) {
	c := Default()
	sorted := ByCapacityDesc(c.FloorUnits(2))
	want := []string{"2F-B1", "2F-C1", "2F-D1", "2F-A1", "2F-A2", "2F-A3", "2F-A4"}
	for i, u := range sorted {
		if u.ID != want[i] {
			t.Fatalf("sorted[%d] = %s, want %s", i, u.ID, want[i])
		}
	}
}
