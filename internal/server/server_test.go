package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/flightres/rpc/internal/bus"
	"github.com/flightres/rpc/internal/rpc"
	"github.com/flightres/rpc/internal/store"
)

func newTestServer(t *testing.T) (*Server, *net.UDPConn, *net.UDPAddr, func()) {
	t.Helper()

	cfg := &Config{
		Addr:         "127.0.0.1",
		Port:         0,
		StoreBackend: "memory",
		MaxInFlight:  64,
		RateLimitRPS: 1000,
		RateBurst:    1000,
		LogLevel:     "info",
		LogFormat:    "json",
	}
	metrics := NewMetrics(prometheus.NewRegistry())
	logger := zerolog.Nop()
	srv := New(cfg, store.NewMemory(), bus.New(), metrics, logger)

	listenAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("resolve listen addr: %v", err)
	}
	serverConn, err := net.ListenUDP("udp", listenAddr)
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}

	clientAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("resolve client addr: %v", err)
	}
	clientConn, err := net.ListenUDP("udp", clientAddr)
	if err != nil {
		t.Fatalf("listen client udp: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		buf := make([]byte, maxDatagramSize)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			serverConn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
			n, peer, err := serverConn.ReadFromUDP(buf)
			if err != nil {
				continue
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			req, err := rpc.DecodeRequest(data)
			if err != nil {
				continue
			}
			go srv.dispatch(ctx, serverConn, peer, peer.String(), req)
		}
	}()

	cleanup := func() {
		cancel()
		serverConn.Close()
		clientConn.Close()
	}
	return srv, clientConn, serverConn.LocalAddr().(*net.UDPAddr), cleanup
}

func sendRequest(t *testing.T, conn *net.UDPConn, serverAddr *net.UDPAddr, req *rpc.Request) {
	t.Helper()
	wire, err := req.Encode()
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	if _, err := conn.WriteToUDP(wire, serverAddr); err != nil {
		t.Fatalf("write request: %v", err)
	}
}

func recvResponse(t *testing.T, conn *net.UDPConn, timeout time.Duration) *rpc.Response {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 4096)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	resp, err := rpc.DecodeResponse(buf[:n])
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestDispatcherQueryScenario(t *testing.T) {
	defer leaktest.Check(t)()

	srv, clientConn, serverAddr, cleanup := newTestServer(t)
	defer cleanup()
	_ = srv

	req := rpc.NewRequest(rpc.ServiceQuery)
	if err := req.EncodeBody(rpc.Service1Request{Source: "LAS", Destination: "HAN"}); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	sendRequest(t, clientConn, serverAddr, req)

	resp := recvResponse(t, clientConn, time.Second)
	if resp.RequestID != req.ID {
		t.Fatalf("request_id mismatch: got %d want %d", resp.RequestID, req.ID)
	}
	if resp.Status != rpc.Finished {
		t.Fatalf("expected Finished, got %s", resp.Status)
	}

	var body rpc.Service1Response
	if err := resp.DecodeBody(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.FlightIDs) != 2 || body.FlightIDs[0] != 1 || body.FlightIDs[1] != 8 {
		t.Fatalf("unexpected flight ids: %v", body.FlightIDs)
	}
}

func TestDispatcherDetailsOfUnknownFlight(t *testing.T) {
	defer leaktest.Check(t)()

	_, clientConn, serverAddr, cleanup := newTestServer(t)
	defer cleanup()

	req := rpc.NewRequest(rpc.ServiceDetails)
	if err := req.EncodeBody(rpc.Service2Request{FlightID: 999}); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	sendRequest(t, clientConn, serverAddr, req)

	resp := recvResponse(t, clientConn, time.Second)
	if resp.Status != rpc.Failed {
		t.Fatalf("expected Failed, got %s", resp.Status)
	}
	var body rpc.ServiceFailedResponse
	if err := resp.DecodeBody(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "Requested resource does not exists" {
		t.Fatalf("unexpected error text: %q", body.Error)
	}
}

func TestDispatcherReserveTwiceCreatesThenUpdates(t *testing.T) {
	defer leaktest.Check(t)()

	_, clientConn, serverAddr, cleanup := newTestServer(t)
	defer cleanup()

	reserve := func() rpc.Service3Response {
		req := rpc.NewRequest(rpc.ServiceReserve)
		if err := req.EncodeBody(rpc.Service3Request{FlightID: 1, NumSeat: 5}); err != nil {
			t.Fatalf("encode body: %v", err)
		}
		sendRequest(t, clientConn, serverAddr, req)
		resp := recvResponse(t, clientConn, time.Second)
		if resp.Status != rpc.Finished {
			t.Fatalf("expected Finished, got %s", resp.Status)
		}
		var body rpc.Service3Response
		if err := resp.DecodeBody(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return body
	}

	first := reserve()
	if first.Message != "Reservation created" {
		t.Fatalf("unexpected first message: %q", first.Message)
	}
	second := reserve()
	if second.Message != "Reservation updated" {
		t.Fatalf("unexpected second message: %q", second.Message)
	}

	detailsReq := rpc.NewRequest(rpc.ServiceDetails)
	if err := detailsReq.EncodeBody(rpc.Service2Request{FlightID: 1}); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	sendRequest(t, clientConn, serverAddr, detailsReq)
	resp := recvResponse(t, clientConn, time.Second)
	var details rpc.Service2Response
	if err := resp.DecodeBody(&details); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if details.SeatAvail != 500-10 {
		t.Fatalf("expected seat_avail decreased by 10, got %d", details.SeatAvail)
	}
}

func TestMonitorSessionReceivesAckThenUpdate(t *testing.T) {
	defer leaktest.Check(t)()

	_, clientConn, serverAddr, cleanup := newTestServer(t)
	defer cleanup()

	monitorReq := rpc.NewRequest(rpc.ServiceMonitor)
	if err := monitorReq.EncodeBody(rpc.Service4Request{FlightID: 2, MonitorInterval: 3}); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	sendRequest(t, clientConn, serverAddr, monitorReq)

	ack := recvResponse(t, clientConn, time.Second)
	if ack.Status != rpc.Finished {
		t.Fatalf("expected Finished ack, got %s", ack.Status)
	}

	// A second client reserves on the same flight; the monitor should wake.
	secondAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("resolve second addr: %v", err)
	}
	secondConn, err := net.ListenUDP("udp", secondAddr)
	if err != nil {
		t.Fatalf("listen second udp: %v", err)
	}
	defer secondConn.Close()

	reserveReq := rpc.NewRequest(rpc.ServiceReserve)
	if err := reserveReq.EncodeBody(rpc.Service3Request{FlightID: 2, NumSeat: 1}); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	sendRequest(t, secondConn, serverAddr, reserveReq)
	_ = recvResponse(t, secondConn, time.Second)

	update := recvResponse(t, clientConn, 2*time.Second)
	if update.Status != rpc.Updated {
		t.Fatalf("expected Updated, got %s", update.Status)
	}
	var updateBody rpc.Service4Update
	if err := update.DecodeBody(&updateBody); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestInvalidServiceTypeYieldsFailed(t *testing.T) {
	defer leaktest.Check(t)()

	_, clientConn, serverAddr, cleanup := newTestServer(t)
	defer cleanup()

	req := rpc.NewRequest(99)
	sendRequest(t, clientConn, serverAddr, req)

	resp := recvResponse(t, clientConn, time.Second)
	if resp.Status != rpc.Failed {
		t.Fatalf("expected Failed, got %s", resp.Status)
	}
	var body rpc.ServiceFailedResponse
	if err := resp.DecodeBody(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "Invalid service type" {
		t.Fatalf("unexpected error text: %q", body.Error)
	}
}
