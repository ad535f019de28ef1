package bench

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/kcz17/benchmetrics/collection"
	"github.com/kcz17/benchmetrics/logging"
	"github.com/kcz17/benchmetrics/recorder"
	"github.com/kcz17/benchmetrics/report"
	"github.com/kcz17/benchmetrics/statistics"
)

type CoordinatorOptions struct {
	Collect  collection.CollectOptions
	Renderer *report.Renderer
	// HistogramDir enables per-tag histogram PNGs when non-empty.
	HistogramDir string
	Logger       logging.Logger
}

// Coordinator collects every worker's timings and renders the report.
type Coordinator struct {
	recorder   *recorder.Recorder
	aggregator *collection.Aggregator
	options    CoordinatorOptions
	// reportMux serialises reports, as each one pops from the shared queue.
	reportMux *sync.Mutex
}

func NewCoordinator(rec *recorder.Recorder, aggregator *collection.Aggregator, options CoordinatorOptions) *Coordinator {
	return &Coordinator{
		recorder:   rec,
		aggregator: aggregator,
		options:    options,
		reportMux:  &sync.Mutex{},
	}
}

// Report collects from the expected workers and writes the rendered report to
// w. A collection failure writes nothing.
func (c *Coordinator) Report(ctx context.Context, w io.Writer) error {
	return c.report(ctx, w, c.options.Renderer)
}

// ReportWith is Report using a different renderer, e.g. to switch verbosity.
func (c *Coordinator) ReportWith(ctx context.Context, w io.Writer, renderer *report.Renderer) error {
	return c.report(ctx, w, renderer)
}

func (c *Coordinator) report(ctx context.Context, w io.Writer, renderer *report.Renderer) error {
	c.reportMux.Lock()
	defer c.reportMux.Unlock()

	collected, err := c.aggregator.Collect(ctx, c.options.Collect)
	if err != nil {
		return fmt.Errorf("could not collect worker timings: %w", err)
	}

	tagStats := statistics.Compute(collected.Dataset)
	c.options.Logger.LogTagStatistics(tagStats)

	if c.options.HistogramDir != "" {
		if _, err := report.SaveHistograms(c.options.HistogramDir, collected.Dataset); err != nil {
			return err
		}
	}

	return renderer.Render(w, tagStats, c.recorder.StartTime())
}
