package consumer

import (
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/flightres/rpc/internal/apierrors"
	"github.com/flightres/rpc/internal/rpc"
)

const (
	perAttemptTimeout = time.Second
	totalBudgetSecs   = 5
)

// ServiceError is a logical failure: the server answered with a Failed
// envelope, not a transport problem. Its Message is the server's display
// string, carried unchanged.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

// Client is the consumer-side endpoint (C3): a bound datagram socket, the
// server's address, and a retry policy.
type Client struct {
	conn       *net.UDPConn
	serverAddr *net.UDPAddr
	cfg        *Config
	logger     zerolog.Logger
	rng        *rand.Rand
}

// New binds the client's local endpoint and resolves the server address.
func New(cfg *Config, logger zerolog.Logger) (*Client, error) {
	localAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.Addr, fmt.Sprint(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("consumer: resolve local addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("consumer: bind local addr: %w", err)
	}
	serverAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.ServerAddr, fmt.Sprint(cfg.ServerPort)))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("consumer: resolve server addr: %w", err)
	}

	return &Client{
		conn:       conn,
		serverAddr: serverAddr,
		cfg:        cfg,
		logger:     logger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Close releases the local endpoint.
func (c *Client) Close() error { return c.conn.Close() }

// LocalAddr returns the client's bound address, mainly for tests.
func (c *Client) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// Query is service 1. Idempotent — safe to retry freely.
func (c *Client) Query(source, destination string) (rpc.Service1Response, error) {
	var out rpc.Service1Response
	err := c.invoke(rpc.ServiceQuery, rpc.Service1Request{Source: source, Destination: destination}, &out)
	return out, err
}

// Details is service 2. Idempotent.
func (c *Client) Details(flightID uint32) (rpc.Service2Response, error) {
	var out rpc.Service2Response
	err := c.invoke(rpc.ServiceDetails, rpc.Service2Request{FlightID: flightID}, &out)
	return out, err
}

// Reserve is service 3. Non-idempotent — a retried call after a lost
// response double-reserves; callers must weigh cfg.Retry accordingly.
func (c *Client) Reserve(flightID, numSeat uint32) (rpc.Service3Response, error) {
	var out rpc.Service3Response
	err := c.invoke(rpc.ServiceReserve, rpc.Service3Request{FlightID: flightID, NumSeat: numSeat}, &out)
	return out, err
}

// Cancel is service 5. Idempotent.
func (c *Client) Cancel(flightID uint32) (rpc.Service5Response, error) {
	var out rpc.Service5Response
	err := c.invoke(rpc.ServiceCancel, rpc.Service5Request{FlightID: flightID}, &out)
	return out, err
}

// BuyLuggage is service 6. Non-idempotent.
func (c *Client) BuyLuggage(flightID, amountInKg uint32) (rpc.Service6Response, error) {
	var out rpc.Service6Response
	err := c.invoke(rpc.ServiceLuggage, rpc.Service6Request{FlightID: flightID, AmountInKg: amountInKg}, &out)
	return out, err
}

// invoke is the retry wrapper (§4.3 "invoke_*"): it calls attempt once, and
// if the policy enables retry and the call timed out, reissues with a fresh
// request id and the same body, unbounded, until success or a non-timeout
// failure. Retries are the caller's wall-clock responsibility.
func (c *Client) invoke(serviceType uint8, body interface{}, out interface{}) error {
	for {
		err := c.attempt(serviceType, body, out)
		if err == nil {
			return nil
		}
		if !c.cfg.Retry || !apierrors.Is(err, apierrors.TimeOutError) {
			return err
		}
		c.logger.Warn().Str("service", serviceLabel(serviceType)).Msg("call timed out, retrying with a new request id")
	}
}

// attempt builds a fresh request, transmits it once, and runs the
// receive/timeout loop (§4.3 steps 1-4). On a Finished response it decodes
// the body into out and returns nil. On Failed it returns *ServiceError.
// Transport and timeout failures return *apierrors.Error.
func (c *Client) attempt(serviceType uint8, body interface{}, out interface{}) error {
	req := rpc.NewRequest(serviceType)
	if err := req.EncodeBody(body); err != nil {
		return apierrors.Wrap(apierrors.IOFailed, err)
	}

	if c.cfg.LossEnabled && c.rng.Float64() < c.cfg.LossProbability {
		// Simulated loss: the datagram is never actually sent, so the
		// receive/timeout loop below will exhaust its budget exactly as it
		// would for a genuinely dropped packet.
	} else {
		wire, err := req.Encode()
		if err != nil {
			return apierrors.Wrap(apierrors.IOFailed, err)
		}
		if _, err := c.conn.WriteToUDP(wire, c.serverAddr); err != nil {
			return apierrors.Wrap(apierrors.IOFailed, err)
		}
	}

	return c.awaitResponse(req.ID, out)
}

// awaitResponse is the receive/timeout loop. Each iteration awaits a
// datagram for up to one second; only timeouts accumulate toward the
// five-second budget, matching the original's elapsed counter.
func (c *Client) awaitResponse(requestID uint32, out interface{}) error {
	buf := make([]byte, 4096)
	elapsedSeconds := 0

	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(perAttemptTimeout)); err != nil {
			return apierrors.Wrap(apierrors.IOFailed, err)
		}
		n, err := c.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				elapsedSeconds++
				if elapsedSeconds > totalBudgetSecs {
					return apierrors.New(apierrors.TimeOutError)
				}
				continue
			}
			return apierrors.Wrap(apierrors.IOFailed, err)
		}

		resp, err := rpc.DecodeResponse(buf[:n])
		if err != nil {
			return apierrors.Wrap(apierrors.IOFailed, err)
		}
		if resp.RequestID != requestID {
			// Stray datagram for a call we are not awaiting (I4); drop.
			continue
		}

		switch resp.Status {
		case rpc.Finished:
			if err := resp.DecodeBody(out); err != nil {
				return apierrors.Wrap(apierrors.IOFailed, err)
			}
			return nil
		case rpc.Failed:
			var failed rpc.ServiceFailedResponse
			if err := resp.DecodeBody(&failed); err != nil {
				return apierrors.Wrap(apierrors.IOFailed, err)
			}
			return &ServiceError{Message: failed.Error}
		case rpc.Updated:
			// Protocol violation for these five services (§4.3 step 2); log
			// and keep waiting for the real terminal response.
			c.logger.Warn().Uint32("request_id", requestID).Msg("unexpected Updated status on non-monitor call")
			continue
		default:
			continue
		}
	}
}

func serviceLabel(serviceType uint8) string {
	switch serviceType {
	case rpc.ServiceQuery:
		return "query"
	case rpc.ServiceDetails:
		return "details"
	case rpc.ServiceReserve:
		return "reserve"
	case rpc.ServiceMonitor:
		return "monitor"
	case rpc.ServiceCancel:
		return "cancel"
	case rpc.ServiceLuggage:
		return "luggage"
	default:
		return "unknown"
	}
}
