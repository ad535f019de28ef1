package collection

import (
	"context"
	"fmt"
	"time"

	"github.com/kcz17/benchmetrics/transport"
)

// DefaultTimeout bounds each pop unless configured otherwise.
const DefaultTimeout = 1800 * time.Second

// Diagnostics receives per-attempt events during collection.
type Diagnostics interface {
	LogSkippedWorker(message string)
	LogCollectedWorker(attempt int, tags int)
}

type noopDiagnostics struct{}

func (noopDiagnostics) LogSkippedWorker(string) {}
func (noopDiagnostics) LogCollectedWorker(int, int) {}

type CollectOptions struct {
	// ExpectedWorkers is the number of payloads to pop. It is supplied by the
	// caller and never derived from the queue.
	ExpectedWorkers int
	// Timeout bounds each pop individually.
	Timeout       time.Duration
	SkipOnTimeout bool
}

// Collection is the outcome of a successful Collect.
type Collection struct {
	Dataset  *Dataset
	Attempts []Attempt
}

// Skipped returns the 1-based indices of the worker slots that timed out.
func (c *Collection) Skipped() []int {
	var skipped []int
	for _, a := range c.Attempts {
		if a.Outcome == Skipped {
			skipped = append(skipped, a.Index)
		}
	}
	return skipped
}

// Aggregator pops one payload per expected worker from the shared queue and
// merges them.
type Aggregator struct {
	transport   transport.Transport
	diagnostics Diagnostics
}

// NewAggregator returns an Aggregator popping from t. A nil diagnostics
// discards per-attempt events.
func NewAggregator(t transport.Transport, diagnostics Diagnostics) *Aggregator {
	if diagnostics == nil {
		diagnostics = noopDiagnostics{}
	}
	return &Aggregator{transport: t, diagnostics: diagnostics}
}

// Collect performs exactly opts.ExpectedWorkers sequential pops. Nothing is
// returned alongside an error, so a failed collection never yields a partial
// dataset.
func (a *Aggregator) Collect(ctx context.Context, opts CollectOptions) (*Collection, error) {
	if opts.ExpectedWorkers < 0 {
		return nil, fmt.Errorf("Aggregator.Collect() expected non-negative ExpectedWorkers; got %d", opts.ExpectedWorkers)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	collection := &Collection{
		Dataset:  NewDataset(),
		Attempts: make([]Attempt, 0, opts.ExpectedWorkers),
	}
	for i := 1; i <= opts.ExpectedWorkers; i++ {
		payload, popErr := a.transport.PopWithTimeout(ctx, opts.Timeout)
		attempt, log, err := Step(i, opts.Timeout, opts.SkipOnTimeout, payload, popErr)
		if err != nil {
			return nil, err
		}
		collection.Attempts = append(collection.Attempts, attempt)

		switch attempt.Outcome {
		case Skipped:
			a.diagnostics.LogSkippedWorker(attempt.Message())
		case Collected:
			collection.Dataset.Merge(log)
			a.diagnostics.LogCollectedWorker(i, len(log))
		}
	}

	return collection, nil
}
