// Package rpc implements the request/response envelope that frames every
// datagram exchanged between a consumer and the server (C2 of the RPC
// substrate): monotonic per-session identifiers, opaque body encode/decode
// over the codec package, and the invalid-service-type convenience reply.
package rpc

import (
	"sync/atomic"

	"github.com/flightres/rpc/internal/apierrors"
	"github.com/flightres/rpc/internal/codec"
)

// Service type tags. 0 and anything above 6 are reserved for the
// invalid-service-type reply.
const (
	ServiceQuery    uint8 = 1
	ServiceDetails  uint8 = 2
	ServiceReserve  uint8 = 3
	ServiceMonitor  uint8 = 4
	ServiceCancel   uint8 = 5
	ServiceLuggage  uint8 = 6
)

// Status is the closed set of terminal/non-terminal response states.
type Status string

const (
	Finished Status = "Finished"
	Updated  Status = "Updated"
	Failed   Status = "Failed"
)

var requestCounter uint32 // process-monotonic, reset at every server/consumer restart
var responseCounter uint32

// Request is the wire request envelope. Identifiers are assigned from a
// process-scoped atomic counter — per I5, clients must not persist them
// across sessions.
type Request struct {
	ID          uint32
	ServiceType uint8
	Body        []byte
}

// NewRequest allocates a fresh id and an empty body for the given service.
func NewRequest(serviceType uint8) *Request {
	return &Request{
		ID:          atomic.AddUint32(&requestCounter, 1),
		ServiceType: serviceType,
	}
}

// EncodeBody serializes value through the codec and stores the bytes as
// the request's body.
func (r *Request) EncodeBody(value interface{}) error {
	data, err := codec.Marshal(value)
	if err != nil {
		return apierrors.Wrap(apierrors.MalformedRequest, err)
	}
	r.Body = data
	return nil
}

// DecodeBody interprets the request body as JSON and materializes it into
// dst. Any codec failure surfaces as MalformedRequest, per §4.2.
func (r *Request) DecodeBody(dst interface{}) error {
	if err := codec.Unmarshal(r.Body, dst); err != nil {
		return apierrors.Wrap(apierrors.MalformedRequest, err)
	}
	return nil
}

// Response is the wire response envelope. Id is server-assigned and
// informational only; RequestID is the correlation key.
type Response struct {
	ID        uint32
	RequestID uint32
	Status    Status
	Body      []byte
}

func nextResponseID() uint32 {
	return atomic.AddUint32(&responseCounter, 1)
}

// NewFinished builds a Finished response whose body is value, encoded.
func NewFinished(requestID uint32, value interface{}) (*Response, error) {
	return buildResponse(requestID, Finished, value)
}

// NewUpdated builds an Updated response (service 4 push notifications only).
func NewUpdated(requestID uint32, value interface{}) (*Response, error) {
	return buildResponse(requestID, Updated, value)
}

// NewFailed builds a Failed response whose body carries the error string.
func NewFailed(requestID uint32, errText string) (*Response, error) {
	return buildResponse(requestID, Failed, ServiceFailedResponse{Error: errText})
}

func buildResponse(requestID uint32, status Status, value interface{}) (*Response, error) {
	data, err := codec.Marshal(value)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.MalformedRequest, err)
	}
	return &Response{
		ID:        nextResponseID(),
		RequestID: requestID,
		Status:    status,
		Body:      data,
	}, nil
}

// FailedInvalidServiceType forges a response for a request whose
// service_type tag does not match any of the six known services.
func FailedInvalidServiceType(req *Request) *Response {
	resp, err := NewFailed(req.ID, "Invalid service type")
	if err != nil {
		// ServiceFailedResponse is a flat string struct; Marshal cannot fail.
		panic(err)
	}
	return resp
}

// DecodeBody interprets the response body as JSON and materializes it.
func (r *Response) DecodeBody(dst interface{}) error {
	if err := codec.Unmarshal(r.Body, dst); err != nil {
		return apierrors.Wrap(apierrors.MalformedRequest, err)
	}
	return nil
}

// Encode renders the response envelope itself as wire bytes.
func (r *Response) Encode() ([]byte, error) {
	return codec.Marshal(wireResponse{
		ID:        r.ID,
		RequestID: r.RequestID,
		Status:    string(r.Status),
		Body:      string(r.Body),
	})
}

// Encode renders the request envelope itself as wire bytes.
func (r *Request) Encode() ([]byte, error) {
	return codec.Marshal(wireRequest{
		ID:          r.ID,
		ServiceType: uint32(r.ServiceType),
		Body:        string(r.Body),
	})
}

// DecodeRequest parses a wire-format request envelope.
func DecodeRequest(data []byte) (*Request, error) {
	var w wireRequest
	if err := codec.Unmarshal(data, &w); err != nil {
		return nil, apierrors.Wrap(apierrors.MalformedRequest, err)
	}
	if w.ServiceType > 255 {
		return nil, apierrors.New(apierrors.MalformedRequest)
	}
	return &Request{ID: w.ID, ServiceType: uint8(w.ServiceType), Body: []byte(w.Body)}, nil
}

// DecodeResponse parses a wire-format response envelope.
func DecodeResponse(data []byte) (*Response, error) {
	var w wireResponse
	if err := codec.Unmarshal(data, &w); err != nil {
		return nil, apierrors.Wrap(apierrors.MalformedRequest, err)
	}
	return &Response{ID: w.ID, RequestID: w.RequestID, Status: Status(w.Status), Body: []byte(w.Body)}, nil
}

// wireRequest/wireResponse are the on-the-wire envelope shapes; the opaque
// body is carried as a string so the outer codec.Marshal call produces a
// single JSON document with the body pre-serialized inside it.
type wireRequest struct {
	ID          uint32 `json:"id"`
	ServiceType uint32 `json:"service_type"`
	Body        string `json:"body"`
}

type wireResponse struct {
	ID        uint32 `json:"id"`
	RequestID uint32 `json:"request_id"`
	Status    string `json:"status"`
	Body      string `json:"body"`
}
