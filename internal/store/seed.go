package store

// deadlineEpoch is the same fixed reference timestamp the original test
// fixture uses (29 March 2023, 16:00:00 UTC), so departure times stay
// stable across runs instead of depending on wall-clock time.
const deadlineEpoch int32 = 1680105600
const hour int32 = 3600

// SeedFlights is the canonical ten-flight fixture both store backends seed
// on startup and that the scenario tests in §8 exercise directly.
func SeedFlights() []Flight {
	return []Flight{
		{ID: 1, Source: "LAS", Destination: "HAN", DepartureTime: deadlineEpoch, SeatAvailable: 500, Airfare: 150.99},
		{ID: 2, Source: "HAN", Destination: "SIN", DepartureTime: deadlineEpoch + hour, SeatAvailable: 300, Airfare: 590.99},
		{ID: 3, Source: "SYD", Destination: "LAX", DepartureTime: deadlineEpoch + 2*hour, SeatAvailable: 500, Airfare: 150.99},
		{ID: 4, Source: "PAR", Destination: "HAN", DepartureTime: deadlineEpoch + 3*hour, SeatAvailable: 500, Airfare: 120.99},
		{ID: 5, Source: "SIN", Destination: "LAX", DepartureTime: deadlineEpoch + 4*hour, SeatAvailable: 500, Airfare: 150.99},
		{ID: 6, Source: "PAR", Destination: "SIN", DepartureTime: deadlineEpoch + 5*hour, SeatAvailable: 200, Airfare: 120.99},
		{ID: 7, Source: "LAS", Destination: "sIN", DepartureTime: deadlineEpoch + 6*hour, SeatAvailable: 200, Airfare: 590.99},
		{ID: 8, Source: "LAS", Destination: "HAN", DepartureTime: deadlineEpoch + 7*hour, SeatAvailable: 300, Airfare: 120.99},
		{ID: 9, Source: "SIN", Destination: "LAS", DepartureTime: deadlineEpoch + 8*hour, SeatAvailable: 500, Airfare: 150.99},
		{ID: 10, Source: "HAN", Destination: "LAS", DepartureTime: deadlineEpoch + 9*hour, SeatAvailable: 300, Airfare: 150.99},
	}
}
