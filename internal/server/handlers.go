package server

import (
	"context"
	"net"

	"github.com/flightres/rpc/internal/apierrors"
	"github.com/flightres/rpc/internal/bus"
	"github.com/flightres/rpc/internal/rpc"
	"github.com/flightres/rpc/internal/store"
)

// handleQuery is service 1: look up flight ids by (source, destination).
// Idempotent — a duplicate causes no state change.
func (s *Server) handleQuery(ctx context.Context, conn *net.UDPConn, peer *net.UDPAddr, req *rpc.Request) {
	var body rpc.Service1Request
	if err := req.DecodeBody(&body); err != nil {
		s.respondMalformed(conn, peer, req)
		return
	}

	ids, err := s.store.GetFlightIDs(ctx, body.Source, body.Destination)
	if err != nil {
		s.respondStoreError(conn, peer, req, err)
		return
	}

	resp, err := rpc.NewFinished(req.ID, rpc.Service1Response{FlightIDs: ids})
	s.sendOrLog(conn, peer, req.ServiceType, resp, err)
}

// handleDetails is service 2: fetch flight details by id. Idempotent.
func (s *Server) handleDetails(ctx context.Context, conn *net.UDPConn, peer *net.UDPAddr, req *rpc.Request) {
	var body rpc.Service2Request
	if err := req.DecodeBody(&body); err != nil {
		s.respondMalformed(conn, peer, req)
		return
	}

	flight, found, err := s.store.GetFlightInfo(ctx, body.FlightID)
	if err != nil {
		s.respondStoreError(conn, peer, req, err)
		return
	}
	if !found {
		s.respondFailed(conn, peer, req, recordNotFoundText)
		return
	}

	resp, err := rpc.NewFinished(req.ID, rpc.Service2Response{
		DepartureTime: flight.DepartureTime,
		Airfare:       flight.Airfare,
		SeatAvail:     flight.SeatAvailable,
	})
	s.sendOrLog(conn, peer, req.ServiceType, resp, err)
}

// handleReserve is service 3: reserve seats. Non-idempotent — a replay
// double-reserves. On success it publishes to the monitor bus so any open
// service-4 session for this flight wakes with fresh inventory.
func (s *Server) handleReserve(ctx context.Context, conn *net.UDPConn, peer *net.UDPAddr, clientAddr string, req *rpc.Request) {
	var body rpc.Service3Request
	if err := req.DecodeBody(&body); err != nil {
		s.respondMalformed(conn, peer, req)
		return
	}

	status, err := s.store.MakeReservation(ctx, body.FlightID, clientAddr, body.NumSeat)
	if err != nil {
		s.respondStoreError(conn, peer, req, err)
		return
	}

	switch status {
	case store.ReservationCreated, store.ReservationUpdated:
		resp, err := rpc.NewFinished(req.ID, rpc.Service3Response{Message: status.String()})
		s.sendOrLog(conn, peer, req.ServiceType, resp, err)
		s.bus.Publish(bus.Event{FlightID: body.FlightID, Status: status.String()})
	default:
		s.respondFailed(conn, peer, req, reservationErrorKind(status).String())
	}
}

// handleCancel is service 5: cancel a reservation. Idempotent — a second
// call against an already-cancelled (flight_id, client) observes the same
// post-state. On success it publishes to the bus.
func (s *Server) handleCancel(ctx context.Context, conn *net.UDPConn, peer *net.UDPAddr, clientAddr string, req *rpc.Request) {
	var body rpc.Service5Request
	if err := req.DecodeBody(&body); err != nil {
		s.respondMalformed(conn, peer, req)
		return
	}

	status, err := s.store.CancelReservation(ctx, body.FlightID, clientAddr)
	if err != nil {
		s.respondStoreError(conn, peer, req, err)
		return
	}

	switch status {
	case store.CancellationSuccess:
		resp, err := rpc.NewFinished(req.ID, rpc.Service5Response{Message: status.String()})
		s.sendOrLog(conn, peer, req.ServiceType, resp, err)
		s.bus.Publish(bus.Event{FlightID: body.FlightID, Status: status.String()})
	default:
		s.respondFailed(conn, peer, req, apierrors.RecordNotFound.String())
	}
}

// handleLuggage is service 6: buy luggage allowance. Non-idempotent — a
// replay double-charges. Does not publish to the bus (§4.4).
func (s *Server) handleLuggage(ctx context.Context, conn *net.UDPConn, peer *net.UDPAddr, clientAddr string, req *rpc.Request) {
	var body rpc.Service6Request
	if err := req.DecodeBody(&body); err != nil {
		s.respondMalformed(conn, peer, req)
		return
	}

	status, err := s.store.BuyLuggage(ctx, body.FlightID, clientAddr, body.AmountInKg)
	if err != nil {
		s.respondStoreError(conn, peer, req, err)
		return
	}

	switch status {
	case store.BuyLuggageSuccess:
		resp, err := rpc.NewFinished(req.ID, rpc.Service6Response{Message: status.String()})
		s.sendOrLog(conn, peer, req.ServiceType, resp, err)
	default:
		s.respondFailed(conn, peer, req, apierrors.RecordNotFound.String())
	}
}

const recordNotFoundText = "Requested resource does not exists"

// reservationErrorKind maps a non-success ReservationStatus to its error
// kind, per the original's InvalidFlightID -> RecordNotFound,
// ZeroSeatReserved/InsufficientCapacity -> ParametersOutOfBounds mapping
// (service_handler.rs). The wire body carries the kind's display text, not
// the store's own status text.
func reservationErrorKind(status store.ReservationStatus) apierrors.Kind {
	switch status {
	case store.ReservationInvalidFlightID:
		return apierrors.RecordNotFound
	default:
		return apierrors.ParametersOutOfBounds
	}
}

func (s *Server) respondMalformed(conn *net.UDPConn, peer *net.UDPAddr, req *rpc.Request) {
	resp, err := rpc.NewFailed(req.ID, "Request deserialization error")
	s.sendOrLog(conn, peer, req.ServiceType, resp, err)
}

func (s *Server) respondFailed(conn *net.UDPConn, peer *net.UDPAddr, req *rpc.Request, errText string) {
	resp, err := rpc.NewFailed(req.ID, errText)
	s.sendOrLog(conn, peer, req.ServiceType, resp, err)
}

// respondStoreError maps an internal store failure to a Failed envelope
// carrying the error's display string (§7's "internal errors also map to
// Failed" rule).
func (s *Server) respondStoreError(conn *net.UDPConn, peer *net.UDPAddr, req *rpc.Request, storeErr error) {
	s.logger.Error().Err(storeErr).Uint32("request_id", req.ID).Msg("store operation failed")
	resp, err := rpc.NewFailed(req.ID, "Internal database service error")
	s.sendOrLog(conn, peer, req.ServiceType, resp, err)
}

func (s *Server) sendOrLog(conn *net.UDPConn, peer *net.UDPAddr, serviceType uint8, resp *rpc.Response, buildErr error) {
	if buildErr != nil {
		s.logger.Error().Err(buildErr).Msg("failed to build response")
		return
	}
	s.sendResponse(conn, peer, serviceType, resp)
}
