// Command consumer issues one flight-reservation RPC call per invocation
// and prints the structured result. Flags mirror §6 of the governing
// design: bind/server addressing, loss simulation, and retry policy, plus
// a service selector and its arguments.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"github.com/flightres/rpc/internal/consumer"
)

func newConsoleLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

func main() {
	addr := flag.String("addr", "127.0.0.1", "local bind host")
	port := flag.Int("port", 3000, "local bind port")
	serverAddr := flag.String("server-addr", "127.0.0.1", "server host")
	serverPort := flag.Int("server-port", 1234, "server port")
	loss := flag.Bool("loss", false, "simulate dropped outgoing datagrams")
	lossProb := flag.Float64("loss-prob", 0.25, "probability of simulated loss, 0-1")
	retry := flag.Bool("retry", false, "retry on timeout with a fresh request id")

	service := flag.String("service", "", "service to invoke: query|details|reserve|monitor|cancel|luggage")
	source := flag.String("source", "", "service 1: source airport code")
	destination := flag.String("destination", "", "service 1: destination airport code")
	flightID := flag.Uint("flight-id", 0, "flight id (services 2,3,4,5,6)")
	numSeat := flag.Uint("num-seat", 0, "service 3: seats to reserve")
	monitorInterval := flag.Uint("monitor-interval", 10, "service 4: monitoring window in seconds")
	amountInKg := flag.Uint("amount-in-kg", 0, "service 6: luggage weight")

	flag.Parse()

	cfg := &consumer.Config{
		Addr:            *addr,
		Port:            *port,
		ServerAddr:      *serverAddr,
		ServerPort:      *serverPort,
		LossEnabled:     *loss,
		LossProbability: *lossProb,
		Retry:           *retry,
		LogLevel:        "info",
		LogFormat:       "console",
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}

	logger := newConsoleLogger()
	client, err := consumer.New(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start consumer:", err)
		os.Exit(1)
	}
	defer client.Close()

	switch *service {
	case "query":
		resp, err := client.Query(*source, *destination)
		report(resp, err)
	case "details":
		resp, err := client.Details(uint32(*flightID))
		report(resp, err)
	case "reserve":
		resp, err := client.Reserve(uint32(*flightID), uint32(*numSeat))
		report(resp, err)
	case "monitor":
		err := client.Monitor(uint32(*flightID), uint32(*monitorInterval),
			func(message string) { fmt.Println("ack:", message) },
			func(seatAvail uint32) { fmt.Println("update: seat_avail =", seatAvail) },
		)
		if err != nil {
			fmt.Fprintln(os.Stderr, "monitor ended with error:", err)
			os.Exit(1)
		}
	case "cancel":
		resp, err := client.Cancel(uint32(*flightID))
		report(resp, err)
	case "luggage":
		resp, err := client.BuyLuggage(uint32(*flightID), uint32(*amountInKg))
		report(resp, err)
	default:
		fmt.Fprintln(os.Stderr, "unknown or missing -service; choose one of query|details|reserve|monitor|cancel|luggage")
		os.Exit(2)
	}
}

func report(resp interface{}, err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "call failed:", err)
		os.Exit(1)
	}
	fmt.Printf("%+v\n", resp)
}
