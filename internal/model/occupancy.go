package model

// Booking is one reservation's contribution to a single table on a single
// date.  A reservation split across several tables appears as one Booking
// per table, each carrying only the seats taken on that table.
//
// Fields:
//  ReservationID – reservation the seats belong to.
//  Name          – display name shown on the seating map.
//  Pax           – seats taken on this table by this reservation.
//  Time          – reservation time (HH:MM), for display only.
type Booking struct {
	ReservationID string `json:"reservation_id"`
	Name          string `json:"name"`
	Pax           int    `json:"pax"`
	Time          string `json:"time"`
}

// TableOccupancy aggregates the booked state of one table for one date.
// The invariant BookedPax == sum(Bookings[i].Pax) must hold after every
// committed mutation.
type TableOccupancy struct {
	BookedPax int       `json:"booked_pax"`
	Bookings  []Booking `json:"bookings"`
}

// DailyOccupancy maps table IDs to their booked state for one calendar
// date.  Tables with no bookings may be absent from the map; absence is
// equivalent to an empty TableOccupancy.
type DailyOccupancy map[string]TableOccupancy

// Clone returns a deep copy so callers can mutate a snapshot without
// affecting the source map.
func (d DailyOccupancy) Clone() DailyOccupancy {
	out := make(DailyOccupancy, len(d))
	for id, t := range d {
		bookings := make([]Booking, len(t.Bookings))
		copy(bookings, t.Bookings)
		out[id] = TableOccupancy{BookedPax: t.BookedPax, Bookings: bookings}
	}
	return out
}

// BookedPaxFor returns the booked headcount for the given table, treating a
// missing entry as zero.
func (d DailyOccupancy) BookedPaxFor(tableID string) int {
	return d[tableID].BookedPax
}

// Add records pax seats for a reservation on the given table.
func (d DailyOccupancy) Add(tableID string, b Booking) {
	t := d[tableID]
	t.BookedPax += b.Pax
	t.Bookings = append(t.Bookings, b)
	d[tableID] = t
}

// Release removes every booking contributed by the given reservation from
// the given table and decrements the headcount accordingly.  It returns
// the number of seats released.
func (d DailyOccupancy) Release(tableID, reservationID string) int {
	t, ok := d[tableID]
	if !ok {
		return 0
	}
	released := 0
	kept := t.Bookings[:0]
	for _, b := range t.Bookings {
		if b.ReservationID == reservationID {
			released += b.Pax
			continue
		}
		kept = append(kept, b)
	}
	t.Bookings = kept
	t.BookedPax -= released
	if t.BookedPax < 0 {
		t.BookedPax = 0
	}
	d[tableID] = t
	return released
}
