package collection

import (
	"errors"
	"fmt"
	"time"

	"github.com/kcz17/benchmetrics/recorder"
	"github.com/kcz17/benchmetrics/transport"
)

// Outcome is the result of one bounded pop.
type Outcome int

const (
	Collected Outcome = iota
	Skipped
	TimedOut
)

func (o Outcome) String() string {
	return [...]string{"collected", "skipped", "timed out"}[o]
}

// Attempt records what happened when collecting from one expected worker.
// Index is 1-based.
type Attempt struct {
	Index   int
	Outcome Outcome
	Timeout time.Duration
}

// Message describes the attempt for diagnostics.
func (a Attempt) Message() string {
	if a.Outcome == Collected {
		return fmt.Sprintf("Collected payload from worker %d.", a.Index)
	}
	return timeoutMessage(a.Index, a.Timeout)
}

// Step turns the result of one pop into an Attempt without performing any I/O.
// A timeout is Skipped when skipOnTimeout is set and TimedOut otherwise, in
// which case a *CollectionTimeoutError is also returned. Collected attempts
// carry the decoded timing log.
func Step(index int, timeout time.Duration, skipOnTimeout bool, payload []byte, popErr error) (Attempt, recorder.TimingLog, error) {
	attempt := Attempt{Index: index, Timeout: timeout}

	switch {
	case errors.Is(popErr, transport.ErrTimedOut):
		if skipOnTimeout {
			attempt.Outcome = Skipped
			return attempt, nil, nil
		}
		attempt.Outcome = TimedOut
		return attempt, nil, &CollectionTimeoutError{Attempt: index, Timeout: timeout}
	case popErr != nil:
		return attempt, nil, fmt.Errorf("could not pop payload for worker %d: %w", index, popErr)
	}

	log, err := DecodePayload(payload)
	if err != nil {
		return attempt, nil, &MalformedPayloadError{Attempt: index, Err: err}
	}
	attempt.Outcome = Collected
	return attempt, log, nil
}
