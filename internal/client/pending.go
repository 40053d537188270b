package client

import (
	"sync"
	"time"

	"github.com/raddaemon/raddaemon/pkg/radius"
)

// Outcome is the terminal result of an Authenticate call (spec.md §6).
// OutcomeMalformed is never produced for a received datagram — a malformed
// response is indistinguishable from no response at all (spec.md §7). It
// is returned only when the request itself cannot be built (an empty or
// over-long password, or a failure generating or encoding the request),
// with Result.Err carrying the cause.
type Outcome int

const (
	OutcomeMalformed Outcome = iota
	OutcomeAccept
	OutcomeReject
	OutcomeTimeout
	OutcomeExhausted
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccept:
		return "Accept"
	case OutcomeReject:
		return "Reject"
	case OutcomeTimeout:
		return "Timeout"
	case OutcomeExhausted:
		return "Exhausted"
	case OutcomeCancelled:
		return "Cancelled"
	default:
		return "Malformed"
	}
}

// Result is what Authenticate/AuthenticateAsync resolve to.
type Result struct {
	Outcome Outcome
	Err     error // nil for Accept and Reject; ErrTimeout/ErrExhausted/ErrCancelled, or the build failure for Malformed
}

// Future is the handle returned by AuthenticateAsync.
type Future struct {
	ch <-chan Result
}

// Wait blocks until the request completes and returns its Result.
func (f Future) Wait() Result {
	return <-f.ch
}

// pendingRequest is one in-flight request, owned by a single socket's
// identifier table for its lifetime (spec.md §3 PendingRequest).
type pendingRequest struct {
	identifier           byte
	socketIndex          int
	serverIndex          int
	requestAuthenticator [radius.AuthenticatorSize]byte
	datagram             []byte // stored verbatim so retries never re-encode (spec.md §9)
	realm, account       string

	// Set once by the issuing goroutine before the request is published
	// to the identifier table (see identTable.publish), then mutated only
	// by the pool's single sweep goroutine; never read or written by a
	// receive loop, so no lock is needed for these two or for serverIndex
	// above, which follows the same rule.
	attemptsRemaining int
	nextSendTime      time.Time

	mu         sync.Mutex
	completed  bool
	completion chan Result
}

// markCompleted transitions the request to completed exactly once. The
// caller that wins (returns true) is responsible for releasing the
// identifier slot and delivering the Result on completion.
func (pr *pendingRequest) markCompleted() bool {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.completed {
		return false
	}
	pr.completed = true
	return true
}

func (pr *pendingRequest) deliver(result Result) {
	pr.completion <- result
	close(pr.completion)
}
