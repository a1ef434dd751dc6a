// Package store implements the transactional reservation domain that
// backs services 1–6: flight lookup and the reservation ledger keyed
// on (flight_id, client_addr).
package store

import "context"

// Flight is one row of the flight catalog.
type Flight struct {
	ID            uint32
	Source        string
	Destination   string
	DepartureTime int32
	SeatAvailable uint32
	Airfare       float32
}

// Reservation is one row of the reservation ledger.
type Reservation struct {
	FlightID      uint32
	ClientAddr    string
	SeatReserved  uint32
	LuggageAmount uint32
}

// ReservationStatus is the result of Store.MakeReservation.
type ReservationStatus int

const (
	ReservationZeroSeat ReservationStatus = iota
	ReservationInvalidFlightID
	ReservationInsufficientCapacity
	ReservationCreated
	ReservationUpdated
)

func (s ReservationStatus) String() string {
	switch s {
	case ReservationZeroSeat:
		return "Seat reserved should be greater"
	case ReservationInvalidFlightID:
		return "Flight not found"
	case ReservationInsufficientCapacity:
		return "Not enough seat"
	case ReservationCreated:
		return "Reservation created"
	case ReservationUpdated:
		return "Reservation updated"
	default:
		return "Unknown reservation status"
	}
}

// CancellationStatus is the result of Store.CancelReservation.
type CancellationStatus int

const (
	CancellationNotExisted CancellationStatus = iota
	CancellationSuccess
)

func (s CancellationStatus) String() string {
	switch s {
	case CancellationNotExisted:
		return "Reservation not found"
	case CancellationSuccess:
		return "Reservation successfully cancelled"
	default:
		return "Unknown cancellation status"
	}
}

// BuyLuggageStatus is the result of Store.BuyLuggage.
type BuyLuggageStatus int

const (
	BuyLuggageNotExisted BuyLuggageStatus = iota
	BuyLuggageSuccess
)

func (s BuyLuggageStatus) String() string {
	switch s {
	case BuyLuggageNotExisted:
		return "Reservation not found"
	case BuyLuggageSuccess:
		return "Luggage successfully bought"
	default:
		return "Unknown buy-luggage status"
	}
}

// Store is the abstract reservation store consumed by the dispatcher's
// handlers (§6). Implementations provide transactional isolation for
// MakeReservation, CancelReservation, and BuyLuggage.
type Store interface {
	GetFlightIDs(ctx context.Context, source, destination string) ([]uint32, error)
	GetFlightInfo(ctx context.Context, id uint32) (Flight, bool, error)
	IsFlightExists(ctx context.Context, id uint32) (bool, error)
	MakeReservation(ctx context.Context, flightID uint32, clientAddr string, numSeat uint32) (ReservationStatus, error)
	CancelReservation(ctx context.Context, flightID uint32, clientAddr string) (CancellationStatus, error)
	BuyLuggage(ctx context.Context, flightID uint32, clientAddr string, amountInKg uint32) (BuyLuggageStatus, error)
}
