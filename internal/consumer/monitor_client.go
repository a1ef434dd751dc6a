package consumer

import (
	"net"
	"time"

	"github.com/flightres/rpc/internal/apierrors"
	"github.com/flightres/rpc/internal/rpc"
)

const monitorAckBudget = 5 * time.Second

// Monitor is the service-4 state machine on the consumer side (§4.3 "differs
// materially"). It blocks until the monitor window (monitorInterval seconds
// from the initial send) elapses, the server sends Failed, or a transport
// error occurs.
//
// onAck fires once, when the server's Finished ack arrives; onUpdate fires
// for every subsequent Updated push. Either callback may be nil.
//
// The window deadline is computed once at the initial send and never
// recreated on each loop iteration — unlike the ack-wait budget, which is a
// genuine per-wait timeout that keeps re-arming until the ack lands. This
// keeps the client's notion of "monitoring period" consistent with the
// server session's own non-resetting timer.
func (c *Client) Monitor(flightID, monitorInterval uint32, onAck func(message string), onUpdate func(seatAvail uint32)) error {
	req := rpc.NewRequest(rpc.ServiceMonitor)
	if err := req.EncodeBody(rpc.Service4Request{FlightID: flightID, MonitorInterval: monitorInterval}); err != nil {
		return apierrors.Wrap(apierrors.IOFailed, err)
	}

	if !(c.cfg.LossEnabled && c.rng.Float64() < c.cfg.LossProbability) {
		wire, err := req.Encode()
		if err != nil {
			return apierrors.Wrap(apierrors.IOFailed, err)
		}
		if _, err := c.conn.WriteToUDP(wire, c.serverAddr); err != nil {
			return apierrors.Wrap(apierrors.IOFailed, err)
		}
	}

	windowDeadline := time.Now().Add(time.Duration(monitorInterval) * time.Second)
	ackReceived := false
	buf := make([]byte, 4096)

	for {
		remaining := time.Until(windowDeadline)
		if remaining <= 0 {
			return nil
		}

		waitFor := monitorAckBudget
		if remaining < waitFor {
			waitFor = remaining
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(waitFor)); err != nil {
			return apierrors.Wrap(apierrors.IOFailed, err)
		}

		n, err := c.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if !ackReceived {
					if !c.cfg.Retry {
						return apierrors.New(apierrors.TimeOutError)
					}
					c.logger.Warn().Msg("monitor ack timed out, retry enabled, keep waiting")
				}
				continue
			}
			return apierrors.Wrap(apierrors.IOFailed, err)
		}

		resp, err := rpc.DecodeResponse(buf[:n])
		if err != nil {
			c.logger.Warn().Err(err).Msg("monitor receives malformed response from server")
			continue
		}
		if resp.RequestID != req.ID {
			continue
		}

		switch resp.Status {
		case rpc.Finished:
			var body rpc.Service4Response
			if err := resp.DecodeBody(&body); err != nil {
				return apierrors.Wrap(apierrors.IOFailed, err)
			}
			ackReceived = true
			if onAck != nil {
				onAck(body.Message)
			}
		case rpc.Failed:
			var body rpc.ServiceFailedResponse
			if err := resp.DecodeBody(&body); err != nil {
				return apierrors.Wrap(apierrors.IOFailed, err)
			}
			return &ServiceError{Message: body.Error}
		case rpc.Updated:
			var body rpc.Service4Update
			if err := resp.DecodeBody(&body); err != nil {
				return apierrors.Wrap(apierrors.IOFailed, err)
			}
			if onUpdate != nil {
				onUpdate(body.SeatAvail)
			}
		}
	}
}
