package model

import "time"

// Reservation statuses.  A reservation is created confirmed and may only
// move to cancelled, which is terminal.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// TableShare records how many seats of one reservation sit at one table.
// A party that fits a single table has exactly one share; a split party
// has one share per table, in allocation order.
type TableShare struct {
	TableID string `json:"table_id"`
	Pax     int    `json:"pax"`
}

// Reservation records a user's booking for a party on a specific date and
// time, together with the tables allocated to seat the party.
//
// Fields:
//  ID        – reservation identifier (UUID).
//  UserID    – external identity of the booking user.
//  Name      – display name for the seating map.
//  Phone     – contact phone number.
//  Date      – reservation date (YYYY-MM-DD).
//  Time      – reservation time (HH:MM).
//  Pax       – party size.  Always >= 1.
//  Tables    – per-table seat shares, in allocation order.
//  Status    – confirmed or cancelled.
//  CreatedAt – creation timestamp (UTC).
//  UpdatedAt – last modification timestamp (UTC).
type Reservation struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"name"`
	Phone     string       `json:"phone"`
	Date      string       `json:"date"`
	Time      string       `json:"time"`
	Pax       int          `json:"pax"`
	Tables    []TableShare `json:"tables"`
	Status    string       `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableIDs returns the ordered list of table IDs the reservation occupies.
func (r *Reservation) TableIDs() []string {
	ids := make([]string, 0, len(r.Tables))
	for _, s := range r.Tables {
		ids = append(ids, s.TableID)
	}
	return ids
}
