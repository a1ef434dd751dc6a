package rpc

// Per-service body schemas (§3). All fields are required; insertion order
// is irrelevant on the wire.

// ServiceFailedResponse is the Failed body for every service.
type ServiceFailedResponse struct {
	Error string `json:"error"`
}

// Service 1 — query flights by source/destination.
type Service1Request struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

type Service1Response struct {
	FlightIDs []uint32 `json:"flight_ids"`
}

// Service 2 — flight details by id.
type Service2Request struct {
	FlightID uint32 `json:"flight_id"`
}

type Service2Response struct {
	DepartureTime int32   `json:"departure_time"`
	Airfare       float32 `json:"airfare"`
	SeatAvail     uint32  `json:"seat_avail"`
}

// Service 3 — reserve seats (non-idempotent).
type Service3Request struct {
	FlightID uint32 `json:"flight_id"`
	NumSeat  uint32 `json:"num_seat"`
}

type Service3Response struct {
	Message string `json:"message"`
}

// Service 4 — open a monitor session.
type Service4Request struct {
	FlightID        uint32 `json:"flight_id"`
	MonitorInterval uint32 `json:"monitor_interval"`
}

type Service4Response struct {
	Message string `json:"message"`
}

// Service4Update is the Updated body pushed during an open monitor session.
type Service4Update struct {
	SeatAvail uint32 `json:"seat_avail"`
}

// Service 5 — cancel a reservation (idempotent).
type Service5Request struct {
	FlightID uint32 `json:"flight_id"`
}

type Service5Response struct {
	Message string `json:"message"`
}

// Service 6 — buy luggage allowance (non-idempotent).
type Service6Request struct {
	FlightID   uint32 `json:"flight_id"`
	AmountInKg uint32 `json:"amount_in_kg"`
}

type Service6Response struct {
	Message string `json:"message"`
}
