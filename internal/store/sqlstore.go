package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS flight_informations (
	id             INTEGER PRIMARY KEY,
	source         TEXT NOT NULL,
	destination    TEXT NOT NULL,
	departure_time INTEGER NOT NULL,
	seat_available INTEGER NOT NULL,
	airfare        REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS reservations (
	id             INTEGER PRIMARY KEY,
	flight_id      INTEGER NOT NULL,
	client_addr    TEXT NOT NULL,
	seat_reserved  INTEGER NOT NULL,
	luggage_amount INTEGER NOT NULL DEFAULT 0,
	UNIQUE(flight_id, client_addr)
);
`

// SQLite is a database/sql-backed store using the pure-Go modernc.org/sqlite
// driver (no cgo). Schema and seed data are grounded on the original's
// server/database package; transactions provide the isolation §5 requires
// for MakeReservation, CancelReservation, and BuyLuggage.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the sqlite database at dsn,
// applies the schema, and seeds it with the ten hard-coded flights if the
// flight table is empty.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; one connection avoids SQLITE_BUSY

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.seedIfEmpty(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) seedIfEmpty() error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM flight_informations").Scan(&count); err != nil {
		return fmt.Errorf("store: count flights: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, f := range SeedFlights() {
		_, err := s.db.Exec(
			"INSERT INTO flight_informations (id, source, destination, departure_time, seat_available, airfare) VALUES (?, ?, ?, ?, ?, ?)",
			f.ID, f.Source, f.Destination, f.DepartureTime, f.SeatAvailable, f.Airfare,
		)
		if err != nil {
			return fmt.Errorf("store: seed flight %d: %w", f.ID, err)
		}
	}
	return nil
}

func (s *SQLite) GetFlightIDs(ctx context.Context, source, destination string) ([]uint32, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM flight_informations WHERE source = ? AND destination = ? ORDER BY id", source, destination)
	if err != nil {
		return nil, fmt.Errorf("store: query flight ids: %w", err)
	}
	defer rows.Close()

	var ids []uint32
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan flight id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) GetFlightInfo(ctx context.Context, id uint32) (Flight, bool, error) {
	var f Flight
	err := s.db.QueryRowContext(ctx,
		"SELECT id, source, destination, departure_time, seat_available, airfare FROM flight_informations WHERE id = ?", id,
	).Scan(&f.ID, &f.Source, &f.Destination, &f.DepartureTime, &f.SeatAvailable, &f.Airfare)
	if err == sql.ErrNoRows {
		return Flight{}, false, nil
	}
	if err != nil {
		return Flight{}, false, fmt.Errorf("store: get flight info: %w", err)
	}
	return f, true, nil
}

func (s *SQLite) IsFlightExists(ctx context.Context, id uint32) (bool, error) {
	_, ok, err := s.GetFlightInfo(ctx, id)
	return ok, err
}

func (s *SQLite) reservationSeats(ctx context.Context, tx *sql.Tx, flightID uint32, clientAddr string) (uint32, bool, error) {
	var seats uint32
	err := tx.QueryRowContext(ctx,
		"SELECT seat_reserved FROM reservations WHERE flight_id = ? AND client_addr = ?", flightID, clientAddr,
	).Scan(&seats)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return seats, true, nil
}

func (s *SQLite) MakeReservation(ctx context.Context, flightID uint32, clientAddr string, numSeat uint32) (ReservationStatus, error) {
	if numSeat == 0 {
		return ReservationZeroSeat, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	var seatAvailable uint32
	err = tx.QueryRowContext(ctx, "SELECT seat_available FROM flight_informations WHERE id = ?", flightID).Scan(&seatAvailable)
	if err == sql.ErrNoRows {
		return ReservationInvalidFlightID, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: read flight: %w", err)
	}
	if seatAvailable < numSeat {
		return ReservationInsufficientCapacity, nil
	}

	if _, err := tx.ExecContext(ctx, "UPDATE flight_informations SET seat_available = seat_available - ? WHERE id = ?", numSeat, flightID); err != nil {
		return 0, fmt.Errorf("store: update flight: %w", err)
	}

	_, existed, err := s.reservationSeats(ctx, tx, flightID, clientAddr)
	if err != nil {
		return 0, fmt.Errorf("store: read reservation: %w", err)
	}

	status := ReservationCreated
	if existed {
		_, err = tx.ExecContext(ctx,
			"UPDATE reservations SET seat_reserved = seat_reserved + ? WHERE flight_id = ? AND client_addr = ?",
			numSeat, flightID, clientAddr)
		status = ReservationUpdated
	} else {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO reservations (flight_id, client_addr, seat_reserved) VALUES (?, ?, ?)",
			flightID, clientAddr, numSeat)
	}
	if err != nil {
		return 0, fmt.Errorf("store: write reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return status, nil
}

func (s *SQLite) CancelReservation(ctx context.Context, flightID uint32, clientAddr string) (CancellationStatus, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	seats, existed, err := s.reservationSeats(ctx, tx, flightID, clientAddr)
	if err != nil {
		return 0, fmt.Errorf("store: read reservation: %w", err)
	}
	if !existed {
		return CancellationNotExisted, nil
	}

	if _, err := tx.ExecContext(ctx, "UPDATE flight_informations SET seat_available = seat_available + ? WHERE id = ?", seats, flightID); err != nil {
		return 0, fmt.Errorf("store: restore seats: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM reservations WHERE flight_id = ? AND client_addr = ?", flightID, clientAddr); err != nil {
		return 0, fmt.Errorf("store: delete reservation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return CancellationSuccess, nil
}

func (s *SQLite) BuyLuggage(ctx context.Context, flightID uint32, clientAddr string, amountInKg uint32) (BuyLuggageStatus, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, existed, err := s.reservationSeats(ctx, tx, flightID, clientAddr)
	if err != nil {
		return 0, fmt.Errorf("store: read reservation: %w", err)
	}
	if !existed {
		return BuyLuggageNotExisted, nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE reservations SET luggage_amount = luggage_amount + ? WHERE flight_id = ? AND client_addr = ?",
		amountInKg, flightID, clientAddr); err != nil {
		return 0, fmt.Errorf("store: update luggage: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return BuyLuggageSuccess, nil
}
