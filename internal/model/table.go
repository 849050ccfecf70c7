package model

// TableUnit describes one physical seating asset in the cafe.  Units are
// static: the set of tables, their capacities and their floors are fixed
// at deploy time and never change while the service runs.
//
// Fields:
//  ID       – unique table identifier, e.g. "2F-B1".
//  Capacity – number of seats the table offers.  Always >= 1.
//  Floor    – floor the table stands on.
type TableUnit struct {
	ID       string `json:"id"`
	Capacity int    `json:"capacity"`
	Floor    int    `json:"floor"`
}
