package server

import (
	"context"
	"net"
	"time"

	"github.com/flightres/rpc/internal/rpc"
)

const monitorAckMessage = "Monitor service successfully established"

// handleMonitor is service 4 (§4.5): START -> VALIDATE -> ACK -> WAIT/READ
// loop -> END. The interval countdown is a single wall-clock timer armed at
// ACK and never reset; an Updated delivery does not extend the window.
func (s *Server) handleMonitor(ctx context.Context, conn *net.UDPConn, peer *net.UDPAddr, clientAddr string, req *rpc.Request) {
	var body rpc.Service4Request
	if err := req.DecodeBody(&body); err != nil {
		s.respondMalformed(conn, peer, req)
		return
	}

	exists, err := s.store.IsFlightExists(ctx, body.FlightID)
	if err != nil {
		s.respondStoreError(conn, peer, req, err)
		return
	}
	if !exists {
		s.respondFailed(conn, peer, req, recordNotFoundText)
		return
	}

	ack, err := rpc.NewFinished(req.ID, rpc.Service4Response{Message: monitorAckMessage})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build monitor ack")
		return
	}
	s.sendResponse(conn, peer, req.ServiceType, ack)

	sub := s.bus.Subscribe(body.FlightID)
	defer sub.Close()

	s.metrics.ActiveMonitors.Inc()
	defer s.metrics.ActiveMonitors.Dec()

	timer := time.NewTimer(time.Duration(body.MonitorInterval) * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if ev.FlightID != body.FlightID {
				continue
			}
			flight, found, err := s.store.GetFlightInfo(ctx, body.FlightID)
			if err != nil {
				s.logger.Warn().Err(err).Uint32("flight_id", body.FlightID).Msg("monitor update: flight lookup failed")
				continue
			}
			if !found {
				continue
			}
			update, err := rpc.NewUpdated(req.ID, rpc.Service4Update{SeatAvail: flight.SeatAvailable})
			if err != nil {
				s.logger.Error().Err(err).Msg("failed to build monitor update")
				continue
			}
			s.sendResponse(conn, peer, req.ServiceType, update)
		}
	}
}
