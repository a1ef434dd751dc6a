// Package server implements the dispatcher and the six service handlers
// (C4): it owns the shared UDP socket, the reservation store, and the
// monitor bus, and spawns one task per inbound datagram.
package server

import (
	"context"
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/flightres/rpc/internal/bus"
	"github.com/flightres/rpc/internal/rpc"
	"github.com/flightres/rpc/internal/store"
)

const maxDatagramSize = 2048

// Server is the dispatch loop plus its shared collaborators.
type Server struct {
	cfg       *Config
	store     store.Store
	bus       *bus.Bus
	admission *Admission
	metrics   *Metrics
	logger    zerolog.Logger
	rng       *rand.Rand
}

// New builds a Server ready to Run.
func New(cfg *Config, st store.Store, b *bus.Bus, metrics *Metrics, logger zerolog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		store:     st,
		bus:       b,
		admission: NewAdmission(cfg.RateLimitRPS, cfg.RateBurst, cfg.MaxInFlight),
		metrics:   metrics,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run binds the UDP socket and services datagrams until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Addr, strconv.Itoa(s.cfg.Port))
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.logger.Info().Str("addr", addr).Msg("server listening")

	buf := make([]byte, maxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn().Err(err).Msg("udp read error")
			continue
		}

		// The peer address is the sole client identifier (§6); reservations
		// are keyed on it. Record before any further processing so
		// malformed-envelope drops are still attributable.
		clientAddr := peer.String()

		if s.cfg.LossEnabled && s.rng.Float64() < s.cfg.LossProbability {
			s.metrics.DroppedTotal.WithLabelValues("loss_sim").Inc()
			continue
		}

		release, ok := s.admission.TryAdmit()
		if !ok {
			s.metrics.DroppedTotal.WithLabelValues("admission").Inc()
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		go s.handleDatagram(ctx, conn, peer, clientAddr, data, release)
	}
}

func (s *Server) handleDatagram(ctx context.Context, conn *net.UDPConn, peer *net.UDPAddr, clientAddr string, data []byte, release func()) {
	defer release()
	defer func() {
		if r := recover(); r != nil {
			LogErrorWithStack(s.logger, errRecovered{r}, "recovered panic in datagram handler", map[string]any{"client_addr": clientAddr})
		}
	}()

	req, err := rpc.DecodeRequest(data)
	if err != nil {
		// No negative ack on a malformed envelope — the client's own
		// timeout handles it (§7).
		s.logger.Warn().Err(err).Str("client_addr", clientAddr).Msg("dropping malformed envelope")
		return
	}

	start := time.Now()
	s.dispatch(ctx, conn, peer, clientAddr, req)
	s.metrics.RequestDuration.WithLabelValues(serviceLabel(req.ServiceType)).Observe(time.Since(start).Seconds())
}

func (s *Server) dispatch(ctx context.Context, conn *net.UDPConn, peer *net.UDPAddr, clientAddr string, req *rpc.Request) {
	switch req.ServiceType {
	case rpc.ServiceQuery:
		s.handleQuery(ctx, conn, peer, req)
	case rpc.ServiceDetails:
		s.handleDetails(ctx, conn, peer, req)
	case rpc.ServiceReserve:
		s.handleReserve(ctx, conn, peer, clientAddr, req)
	case rpc.ServiceMonitor:
		s.handleMonitor(ctx, conn, peer, clientAddr, req)
	case rpc.ServiceCancel:
		s.handleCancel(ctx, conn, peer, clientAddr, req)
	case rpc.ServiceLuggage:
		s.handleLuggage(ctx, conn, peer, clientAddr, req)
	default:
		s.sendResponse(conn, peer, req.ServiceType, rpc.FailedInvalidServiceType(req))
	}
}

// sendResponse writes resp to peer and records it against the request-total
// metric, labeled by the originating request's service type.
func (s *Server) sendResponse(conn *net.UDPConn, peer *net.UDPAddr, serviceType uint8, resp *rpc.Response) {
	wire, err := resp.Encode()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response envelope")
		return
	}
	if _, err := conn.WriteToUDP(wire, peer); err != nil {
		s.logger.Error().Err(err).Str("peer", peer.String()).Msg("socket send failed")
	}
	s.metrics.RequestsTotal.WithLabelValues(serviceLabel(serviceType), string(resp.Status)).Inc()
}

func serviceLabel(serviceType uint8) string {
	switch serviceType {
	case rpc.ServiceQuery:
		return "1"
	case rpc.ServiceDetails:
		return "2"
	case rpc.ServiceReserve:
		return "3"
	case rpc.ServiceMonitor:
		return "4"
	case rpc.ServiceCancel:
		return "5"
	case rpc.ServiceLuggage:
		return "6"
	default:
		return "invalid"
	}
}

type errRecovered struct{ v interface{} }

func (e errRecovered) Error() string { return errRecoveredMsg(e.v) }

func errRecoveredMsg(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "panic"
}
