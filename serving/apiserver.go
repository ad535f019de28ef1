package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackwhelpton/fasthttp-routing/v2"
	"github.com/kcz17/benchmetrics/bench"
	"github.com/kcz17/benchmetrics/clock"
	"github.com/kcz17/benchmetrics/recorder"
	"github.com/kcz17/benchmetrics/report"
	"github.com/valyala/fasthttp"
)

// APIServer exposes the local Recorder and, on the coordinator, on-demand
// reports.
type APIServer struct {
	Recorder *recorder.Recorder
	// Coordinator is nil on workers, in which case /report is not routed.
	Coordinator *bench.Coordinator
	Clock       clock.Clock
}

func (a *APIServer) ListenAndServe(addr string) error {
	return fasthttp.ListenAndServe(addr, a.Router().HandleRequest)
}

func (a *APIServer) Router() *routing.Router {
	router := routing.New()

	router.Get("/recorder", a.recorderSnapshotHandler())
	if a.Coordinator != nil {
		router.Get("/report", a.reportHandler())
	}

	return router
}

func (a *APIServer) recorderSnapshotHandler() routing.Handler {
	return func(c *routing.Context) error {
		b, err := json.Marshal(a.Recorder.Snapshot())
		if err != nil {
			return fmt.Errorf("could not marshal recorder snapshot: err = %w", err)
		}
		c.SetContentType("application/json")
		return c.Write(b)
	}
}

// reportHandler runs one collection and writes the rendered report. Pass
// verbose=1 for the verbose layout.
func (a *APIServer) reportHandler() routing.Handler {
	return func(c *routing.Context) error {
		verbose := c.QueryArgs().GetBool("verbose")

		var buf bytes.Buffer
		if err := a.Coordinator.ReportWith(context.Background(), &buf, report.NewRenderer(a.Clock, verbose)); err != nil {
			return routing.NewHTTPError(fasthttp.StatusServiceUnavailable, fmt.Sprintf("could not render report: err = %v\n", err))
		}

		c.SetContentType("text/plain; charset=utf-8")
		return c.Write(buf.Bytes())
	}
}
