package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/naruebet/cafe-reservation/internal/model"
)

// MySQLStore implements Store on top of MySQL.  Occupancy lives in two
// tables: occupancy_days carries one version row per date and gives the
// whole-day document its optimistic concurrency control, while
// occupancy_tables holds one row per (date, table) with the booking list
// as JSON.  Merging touched rows with ON DUPLICATE KEY UPDATE leaves
// concurrent writes to other tables of the same date intact, but the
// version row still serializes committers per date.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a store bound to the given database handle.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// EnsureSchema creates the backing tables when they do not exist yet.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reservations (
			id          CHAR(36)     NOT NULL PRIMARY KEY,
			user_id     VARCHAR(64)  NOT NULL,
			name        VARCHAR(128) NOT NULL,
			phone       VARCHAR(32)  NOT NULL,
			res_date    CHAR(10)     NOT NULL,
			res_time    CHAR(5)      NOT NULL,
			pax         INT UNSIGNED NOT NULL,
			tables_json JSON         NOT NULL,
			status      VARCHAR(16)  NOT NULL,
			created_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_reservations_user (user_id),
			KEY idx_reservations_date (res_date)
		)`,
		`CREATE TABLE IF NOT EXISTS occupancy_days (
			slot_date CHAR(10)        NOT NULL PRIMARY KEY,
			version   BIGINT UNSIGNED NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS occupancy_tables (
			slot_date  CHAR(10)     NOT NULL,
			table_id   VARCHAR(32)  NOT NULL,
			booked_pax INT UNSIGNED NOT NULL,
			bookings   JSON         NOT NULL,
			PRIMARY KEY (slot_date, table_id)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ReadDay loads the version row and every table row for the date.  A
// missing version row yields version 0 and an empty map.
func (s *MySQLStore) ReadDay(ctx context.Context, date string) (DaySnapshot, error) {
	snap := DaySnapshot{Date: date, Occupancy: model.DailyOccupancy{}}

	const verQ = `SELECT version FROM occupancy_days WHERE slot_date = ?`
	err := s.db.QueryRowContext(ctx, verQ, date).Scan(&snap.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return snap, err
	}

	const tabQ = `SELECT table_id, booked_pax, bookings FROM occupancy_tables WHERE slot_date = ?`
	rows, err := s.db.QueryContext(ctx, tabQ, date)
	if err != nil {
		return snap, err
	}
	defer rows.Close()
	for rows.Next() {
		var tableID string
		var bookedPax int
		var raw []byte
		if err := rows.Scan(&tableID, &bookedPax, &raw); err != nil {
			return snap, err
		}
		var bookings []model.Booking
		if err := json.Unmarshal(raw, &bookings); err != nil {
			return snap, fmt.Errorf("decode bookings for %s/%s: %w", date, tableID, err)
		}
		snap.Occupancy[tableID] = model.TableOccupancy{BookedPax: bookedPax, Bookings: bookings}
	}
	return snap, rows.Err()
}

// Commit applies the whole set in one SQL transaction.  Each day's
// version row is advanced with a compare-and-set; zero rows affected (or
// a duplicate insert for a brand-new day) means a concurrent writer got
// there first and the commit reports ErrVersionConflict.
func (s *MySQLStore) Commit(ctx context.Context, set CommitSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, day := range set.Days {
		if err := s.bumpVersionTx(ctx, tx, day); err != nil {
			return err
		}
		for tableID, entry := range day.Tables {
			if len(entry.Bookings) == 0 {
				const del = `DELETE FROM occupancy_tables WHERE slot_date = ? AND table_id = ?`
				if _, err := tx.ExecContext(ctx, del, day.Date, tableID); err != nil {
					return err
				}
				continue
			}
			raw, err := json.Marshal(entry.Bookings)
			if err != nil {
				return err
			}
			const up = `INSERT INTO occupancy_tables (slot_date, table_id, booked_pax, bookings)
			            VALUES (?, ?, ?, ?)
			            ON DUPLICATE KEY UPDATE booked_pax = VALUES(booked_pax), bookings = VALUES(bookings)`
			if _, err := tx.ExecContext(ctx, up, day.Date, tableID, entry.BookedPax, raw); err != nil {
				return err
			}
		}
	}

	for _, res := range set.Reservations {
		raw, err := json.Marshal(res.Tables)
		if err != nil {
			return err
		}
		const up = `INSERT INTO reservations (id, user_id, name, phone, res_date, res_time, pax, tables_json, status, created_at, updated_at)
		            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		            ON DUPLICATE KEY UPDATE res_date = VALUES(res_date), res_time = VALUES(res_time),
		                tables_json = VALUES(tables_json), status = VALUES(status), updated_at = VALUES(updated_at)`
		if _, err := tx.ExecContext(ctx, up,
			res.ID, res.UserID, res.Name, res.Phone, res.Date, res.Time, res.Pax,
			raw, res.Status, res.CreatedAt, res.UpdatedAt,
		); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// bumpVersionTx performs the per-day compare-and-set that detects
// concurrent modification of a date document.
func (s *MySQLStore) bumpVersionTx(ctx context.Context, tx *sql.Tx, day DayWrite) error {
	if day.ExpectedVersion == 0 {
		const ins = `INSERT INTO occupancy_days (slot_date, version) VALUES (?, 1)`
		if _, err := tx.ExecContext(ctx, ins, day.Date); err != nil {
			var me *mysql.MySQLError
			if errors.As(err, &me) && me.Number == 1062 { // duplicate key: day appeared concurrently
				return ErrVersionConflict
			}
			return err
		}
		return nil
	}
	const upd = `UPDATE occupancy_days SET version = version + 1 WHERE slot_date = ? AND version = ?`
	result, err := tx.ExecContext(ctx, upd, day.Date, day.ExpectedVersion)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *MySQLStore) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT id, user_id, name, phone, res_date, res_time, pax, tables_json, status, created_at, updated_at
	           FROM reservations WHERE id = ?`
	res, err := scanReservation(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *MySQLStore) ListReservationsByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	const q = `SELECT id, user_id, name, phone, res_date, res_time, pax, tables_json, status, created_at, updated_at
	           FROM reservations WHERE user_id = ?`
	return s.queryReservations(ctx, q, userID)
}

func (s *MySQLStore) ListReservations(ctx context.Context) ([]model.Reservation, error) {
	const q = `SELECT id, user_id, name, phone, res_date, res_time, pax, tables_json, status, created_at, updated_at
	           FROM reservations`
	return s.queryReservations(ctx, q)
}

func (s *MySQLStore) DeleteReservationsBefore(ctx context.Context, date string) (int, error) {
	const q = `DELETE FROM reservations WHERE res_date < ?`
	result, err := s.db.ExecContext(ctx, q, date)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// ReplaceOccupancy wipes every occupancy row and writes the supplied
// documents, advancing each day's version so in-flight optimistic
// transactions fail rather than commit against rebuilt state.
func (s *MySQLStore) ReplaceOccupancy(ctx context.Context, days map[string]model.DailyOccupancy) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM occupancy_tables`); err != nil {
		return err
	}
	for date, occ := range days {
		const bump = `INSERT INTO occupancy_days (slot_date, version) VALUES (?, 1)
		              ON DUPLICATE KEY UPDATE version = version + 1`
		if _, err := tx.ExecContext(ctx, bump, date); err != nil {
			return err
		}
		for tableID, entry := range occ {
			if len(entry.Bookings) == 0 {
				continue
			}
			raw, err := json.Marshal(entry.Bookings)
			if err != nil {
				return err
			}
			const ins = `INSERT INTO occupancy_tables (slot_date, table_id, booked_pax, bookings) VALUES (?, ?, ?, ?)`
			if _, err := tx.ExecContext(ctx, ins, date, tableID, entry.BookedPax, raw); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var raw []byte
	if err := row.Scan(
		&res.ID, &res.UserID, &res.Name, &res.Phone, &res.Date, &res.Time, &res.Pax,
		&raw, &res.Status, &res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &res.Tables); err != nil {
		return nil, fmt.Errorf("decode table shares for %s: %w", res.ID, err)
	}
	return &res, nil
}

func (s *MySQLStore) queryReservations(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}
