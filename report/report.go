package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kcz17/benchmetrics/clock"
	"github.com/kcz17/benchmetrics/statistics"
)

const (
	Title = "Report Metrics"

	header    = "     TAGS       |   COUNT    |  AVE   |HIGHEST | LOWEST |   SD   | TOTDUR    | ops/sec"
	rowFormat = "%15s |  %9d |%7.3f |%7.3f |%7.3f |%7.3f | %9.3f | %7.1f "
	tagWidth  = 15
)

// Separator joins the sections of a report.
var Separator = "\n" + strings.Repeat("#", 87) + "\n"

// Renderer formats per-tag statistics as a fixed-width text report.
type Renderer struct {
	clock   clock.Clock
	verbose bool
}

func NewRenderer(c clock.Clock, verbose bool) *Renderer {
	return &Renderer{clock: c, verbose: verbose}
}

// Render writes the report for tagStats, with running time measured from
// start. Compact reports hold the running time and the table; verbose reports
// are preceded by a title and the raw statistics.
func (r *Renderer) Render(w io.Writer, tagStats []statistics.TagStatistics, start time.Time) error {
	sections := []string{
		RunningTime(r.clock.Now().Sub(start)),
		Table(tagStats),
	}
	if r.verbose {
		raw, err := json.MarshalIndent(tagStats, "", "  ")
		if err != nil {
			return fmt.Errorf("could not marshal statistics: %w", err)
		}
		sections = append([]string{Title, string(raw)}, sections...)
	}

	if _, err := io.WriteString(w, strings.Join(sections, Separator)+"\n"); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}
	return nil
}

// Table renders the header followed by one row per tag, in the given order.
func Table(tagStats []statistics.TagStatistics) string {
	lines := make([]string, 0, len(tagStats)+1)
	lines = append(lines, header)
	for _, s := range tagStats {
		lines = append(lines, Row(s))
	}
	return strings.Join(lines, "\n")
}

func Row(s statistics.TagStatistics) string {
	return fmt.Sprintf(rowFormat,
		truncate(s.Tag, tagWidth),
		s.Count,
		s.Average,
		s.Highest,
		s.Lowest,
		s.StandardDeviation,
		s.Total,
		s.OperationsPerSecond,
	)
}

func RunningTime(elapsed time.Duration) string {
	return fmt.Sprintf("Running time: %5.3f minutes", elapsed.Minutes())
}

func truncate(tag string, width int) string {
	runes := []rune(tag)
	if len(runes) <= width {
		return tag
	}
	return string(runes[:width])
}
