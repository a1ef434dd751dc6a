package server

import (
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Admission gates the per-datagram goroutine spawn with a token-bucket
// request-rate limit and a bounded in-flight-task budget (A4). Rejection
// has the same externally-visible effect as a lost datagram under §4.4:
// the caller silently drops and resumes its receive loop — no negative ack
// is ever sent.
type Admission struct {
	limiter   *rate.Limiter
	maxInFlight int64
	inFlight    int64
}

// NewAdmission builds an admission guard allowing up to ratePerSec
// sustained requests per second (burst up to burst) and at most maxInFlight
// concurrently-dispatched tasks.
func NewAdmission(ratePerSec float64, burst int, maxInFlight int) *Admission {
	return &Admission{
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), burst),
		maxInFlight: int64(maxInFlight),
	}
}

// TryAdmit attempts to reserve one slot for an inbound datagram. It returns
// a release func to call when the task finishes, or ok=false if the
// datagram should be dropped.
func (a *Admission) TryAdmit() (release func(), ok bool) {
	if !a.limiter.Allow() {
		return nil, false
	}
	if atomic.AddInt64(&a.inFlight, 1) > a.maxInFlight {
		atomic.AddInt64(&a.inFlight, -1)
		return nil, false
	}
	return func() { atomic.AddInt64(&a.inFlight, -1) }, true
}

// InFlight reports the current number of admitted, not-yet-finished tasks.
func (a *Admission) InFlight() int64 { return atomic.LoadInt64(&a.inFlight) }
