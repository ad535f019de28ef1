package statistics

import (
	"fmt"
	"math"
	"time"

	"github.com/jamiealquiza/tachymeter"
	"github.com/kcz17/benchmetrics/collection"
	"github.com/kcz17/benchmetrics/recorder"
	"github.com/montanaflynn/stats"
)

// TagStatistics summarises the samples of one tag. Durations are in seconds.
type TagStatistics struct {
	Tag      recorder.Tag `json:"tag"`
	Count    int          `json:"count"`
	Total    float64      `json:"total"`
	Average  float64      `json:"average"`
	Highest  float64      `json:"highest"`
	Lowest   float64      `json:"lowest"`
	Variance float64      `json:"variance"`
	// StandardDeviation is the population standard deviation.
	StandardDeviation float64 `json:"sd"`
	// OperationsPerSecond is the mean number of samples started per second,
	// counting only seconds in which at least one sample started.
	OperationsPerSecond float64     `json:"opsec"`
	Percentiles         Percentiles `json:"percentiles"`
}

// Percentiles of the sample durations, in seconds.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Compute calculates statistics for every tag in ds, in the dataset's tag
// order.
func Compute(ds *collection.Dataset) []TagStatistics {
	tags := ds.Tags()
	out := make([]TagStatistics, 0, len(tags))
	for _, tag := range tags {
		out = append(out, ComputeTag(tag, ds.Samples(tag)))
	}
	return out
}

// ComputeTag calculates statistics over a non-empty set of samples. It panics
// on an empty set, which a Dataset never holds.
func ComputeTag(tag recorder.Tag, samples []recorder.Sample) TagStatistics {
	if len(samples) == 0 {
		panic(fmt.Sprintf("ComputeTag() expected at least one sample for tag %q", tag))
	}

	durations := make([]float64, len(samples))
	for i, s := range samples {
		durations[i] = s.Seconds()
	}

	// The stats package only errors on empty input, which is ruled out above.
	total := must(stats.Sum(durations))
	highest := must(stats.Max(durations))
	lowest := must(stats.Min(durations))
	average := total / float64(len(durations))

	var variance float64
	if len(durations) > 1 {
		variance = must(stats.PopulationVariance(durations))
	}

	return TagStatistics{
		Tag:                 tag,
		Count:               len(durations),
		Total:               total,
		Average:             average,
		Highest:             highest,
		Lowest:              lowest,
		Variance:            variance,
		StandardDeviation:   math.Sqrt(variance),
		OperationsPerSecond: OperationsPerSecond(samples),
		Percentiles:         percentiles(samples),
	}
}

// OperationsPerSecond buckets sample start times into whole seconds and
// returns the mean count over the buckets that saw at least one sample. It is
// not the count divided by the span of the run.
func OperationsPerSecond(samples []recorder.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}

	buckets := map[int64]int{}
	for _, s := range samples {
		buckets[s.Start.Unix()]++
	}
	return float64(len(samples)) / float64(len(buckets))
}

func percentiles(samples []recorder.Sample) Percentiles {
	tach := tachymeter.New(&tachymeter.Config{Size: len(samples)})
	for _, s := range samples {
		tach.AddTime(s.Duration)
	}
	metrics := tach.Calc()
	return Percentiles{
		P50: seconds(metrics.Time.P50),
		P95: seconds(metrics.Time.P95),
		P99: seconds(metrics.Time.P99),
	}
}

func seconds(d time.Duration) float64 {
	return float64(d) / float64(time.Second)
}

func must(v float64, err error) float64 {
	if err != nil {
		panic(fmt.Errorf("unexpected err while calculating statistics: %w", err))
	}
	return v
}
