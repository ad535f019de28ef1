package bench

import (
	"context"

	"github.com/kcz17/benchmetrics/collection"
	"github.com/kcz17/benchmetrics/logging"
	"github.com/kcz17/benchmetrics/recorder"
)

// Worker runs a job under instrumentation and publishes its timings when done.
type Worker struct {
	recorder  *recorder.Recorder
	publisher *collection.Publisher
	logger    logging.Logger
}

func NewWorker(rec *recorder.Recorder, publisher *collection.Publisher, logger logging.Logger) *Worker {
	return &Worker{recorder: rec, publisher: publisher, logger: logger}
}

// Run executes job and then publishes the timing log. Timings are published
// even if job fails, so the coordinator is not left waiting; job's error is
// returned in preference to a publish error.
func (w *Worker) Run(ctx context.Context, job func(context.Context) error) error {
	jobErr := job(ctx)
	pubErr := w.Publish(ctx)
	if jobErr != nil {
		return jobErr
	}
	return pubErr
}

func (w *Worker) Publish(ctx context.Context) error {
	log := w.recorder.TimingLog()
	if err := w.publisher.Publish(ctx, log); err != nil {
		return err
	}

	samples := 0
	for _, s := range log {
		samples += len(s)
	}
	w.logger.LogPublished(len(log), samples)
	return nil
}
