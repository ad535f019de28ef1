package workload

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kcz17/benchmetrics/recorder"
)

// Options describes a synthetic workload whose operations take a duration
// drawn from a truncated normal distribution, in milliseconds.
type Options struct {
	Tag          string
	Iterations   int
	MinMillis    float64
	MaxMillis    float64
	MeanMillis   float64
	StddevMillis float64
	Seed         uint64
}

// Workload stands in for the business logic of a benchmarked job. Each
// iteration is measured, ticked and tallied through the Recorder.
type Workload struct {
	options  Options
	recorder *recorder.Recorder
	dist     *TruncatedNormal
	// sleep performs the simulated operation; tests replace it to advance a
	// simulated clock.
	sleep func(time.Duration)
}

func New(rec *recorder.Recorder, options Options) *Workload {
	rec.RegisterOwner("workload")
	return &Workload{
		options:  options,
		recorder: rec,
		dist:     NewTruncatedNormal(options.MinMillis, options.MaxMillis, options.MeanMillis, options.StddevMillis, options.Seed),
		sleep:    time.Sleep,
	}
}

// Run performs the configured iterations, stopping early if ctx is done.
func (w *Workload) Run(ctx context.Context) error {
	for i := 0; i < w.options.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("workload stopped after %d iterations: %w", i, err)
		}

		d := w.nextDuration()
		err := w.recorder.Measure(w.options.Tag, func() error {
			w.sleep(d)
			return nil
		})
		if err != nil {
			return err
		}
		w.recorder.Tick(nil, w.options.Tag)
		if err := w.recorder.Tally("iterations", 1); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workload) nextDuration() time.Duration {
	millis := w.dist.Rand()
	if math.IsNaN(millis) || millis < 0 {
		millis = 0
	}
	return time.Duration(millis * float64(time.Millisecond))
}
