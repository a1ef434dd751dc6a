package rpc

import "testing"

func TestRequestIDsAreMonotonicAndIndependentOfResponseIDs(t *testing.T) {
	r1 := NewRequest(ServiceQuery)
	r2 := NewRequest(ServiceQuery)
	if r2.ID <= r1.ID {
		t.Fatalf("expected monotonically increasing request ids, got %d then %d", r1.ID, r2.ID)
	}

	resp1, err := NewFinished(r1.ID, Service1Response{FlightIDs: []uint32{1, 8}})
	if err != nil {
		t.Fatalf("NewFinished: %v", err)
	}
	resp2, err := NewFinished(r2.ID, Service1Response{FlightIDs: []uint32{1, 8}})
	if err != nil {
		t.Fatalf("NewFinished: %v", err)
	}
	if resp2.ID <= resp1.ID {
		t.Fatalf("expected monotonically increasing response ids, got %d then %d", resp1.ID, resp2.ID)
	}
	if resp1.RequestID != r1.ID {
		t.Fatalf("response.RequestID = %d, want %d", resp1.RequestID, r1.ID)
	}
}

func TestEncodeBodyDecodeBodyRoundTrip(t *testing.T) {
	req := NewRequest(ServiceReserve)
	in := Service3Request{FlightID: 1, NumSeat: 5}
	if err := req.EncodeBody(in); err != nil {
		t.Fatalf("EncodeBody: %v", err)
	}

	var out Service3Request
	if err := req.DecodeBody(&out); err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestDecodeBodyMalformedSurfacesAsMalformedRequest(t *testing.T) {
	req := &Request{Body: []byte("not json")}
	var out Service3Request
	err := req.DecodeBody(&out)
	if err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestFailedInvalidServiceType(t *testing.T) {
	req := NewRequest(9)
	resp := FailedInvalidServiceType(req)
	if resp.Status != Failed {
		t.Fatalf("status = %v, want Failed", resp.Status)
	}
	if resp.RequestID != req.ID {
		t.Fatalf("RequestID = %d, want %d", resp.RequestID, req.ID)
	}
	var body ServiceFailedResponse
	if err := resp.DecodeBody(&body); err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if body.Error != "Invalid service type" {
		t.Fatalf("error = %q, want %q", body.Error, "Invalid service type")
	}
}

func TestEnvelopeWireRoundTrip(t *testing.T) {
	req := NewRequest(ServiceCancel)
	if err := req.EncodeBody(Service5Request{FlightID: 1}); err != nil {
		t.Fatalf("EncodeBody: %v", err)
	}
	wire, err := req.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := DecodeRequest(wire)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if decoded.ID != req.ID || decoded.ServiceType != req.ServiceType {
		t.Fatalf("decoded envelope mismatch: got %+v, want %+v", decoded, req)
	}
	var body Service5Request
	if err := decoded.DecodeBody(&body); err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if body.FlightID != 1 {
		t.Fatalf("FlightID = %d, want 1", body.FlightID)
	}
}
