package recorder

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/kcz17/benchmetrics/clock"
)

var (
	ErrNegativeTally    = errors.New("tally count must not be negative")
	ErrNegativeDuration = errors.New("external timing duration must not be negative")
)

// Recorder keeps a worker's local instrumentation: counters, timed
// measurements, tallies and external (bulk) timings. One Recorder is
// constructed per process and handed to every call site that instruments.
type Recorder struct {
	clock     clock.Clock
	startTime time.Time

	counters map[Tag]int64
	timings  TimingLog
	tallies  map[string]int64
	owners   []string
	bulk     []Sample

	// mux allows the API server to read state while the worker records. All
	// writes still originate from the worker itself.
	mux *sync.RWMutex
}

func New(c clock.Clock) *Recorder {
	return &Recorder{
		clock:     c,
		startTime: c.Now(),
		counters:  map[Tag]int64{},
		timings:   TimingLog{},
		tallies:   map[string]int64{},
		mux:       &sync.RWMutex{},
	}
}

// Tick counts one against tag and passes datum through unchanged. An empty tag
// is replaced with the file:line of the caller.
func (r *Recorder) Tick(datum interface{}, tag Tag) interface{} {
	if tag == "" {
		tag = callerTag(2)
	}

	r.mux.Lock()
	r.counters[tag]++
	r.mux.Unlock()
	return datum
}

func callerTag(skip int) Tag {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// Measure times body and records a sample under tag. If body returns an error
// (or panics) no sample is recorded and the error is returned as is.
func (r *Recorder) Measure(tag Tag, body func() error) error {
	before := r.clock.Now()
	if err := body(); err != nil {
		return err
	}
	after := r.clock.Now()

	duration := after.Sub(before)
	if duration < 0 {
		// The clock stepped backwards during body.
		duration = 0
	}

	r.mux.Lock()
	r.timings[tag] = append(r.timings[tag], Sample{Start: before, Duration: duration})
	r.mux.Unlock()
	return nil
}

// Tally adds count to the total for key. A zero count is a no-op.
func (r *Recorder) Tally(key string, count int64) error {
	if count < 0 {
		return fmt.Errorf("Recorder.Tally() with key %q got count = %d: %w", key, count, ErrNegativeTally)
	}
	if count == 0 {
		return nil
	}

	r.mux.Lock()
	r.tallies[key] += count
	r.mux.Unlock()
	return nil
}

// RecordExternalTiming appends a sample measured elsewhere, e.g. by a hook
// around a batch execution, to the bulk timing log.
func (r *Recorder) RecordExternalTiming(start time.Time, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("Recorder.RecordExternalTiming() got duration = %s: %w", d, ErrNegativeDuration)
	}

	r.mux.Lock()
	r.bulk = append(r.bulk, Sample{Start: start, Duration: d})
	r.mux.Unlock()
	return nil
}

// RecordExternalInterval is RecordExternalTiming for callers holding the
// before and after timestamps.
func (r *Recorder) RecordExternalInterval(before, after time.Time) error {
	return r.RecordExternalTiming(before, after.Sub(before))
}

// RegisterOwner notes a component that instruments through this Recorder.
func (r *Recorder) RegisterOwner(owner string) {
	r.mux.Lock()
	defer r.mux.Unlock()
	for _, o := range r.owners {
		if o == owner {
			return
		}
	}
	r.owners = append(r.owners, owner)
}

func (r *Recorder) StartTime() time.Time {
	return r.startTime
}

func (r *Recorder) Counters() map[Tag]int64 {
	r.mux.RLock()
	defer r.mux.RUnlock()
	counters := make(map[Tag]int64, len(r.counters))
	for tag, n := range r.counters {
		counters[tag] = n
	}
	return counters
}

// TimingLog returns a copy of the measured samples.
func (r *Recorder) TimingLog() TimingLog {
	r.mux.RLock()
	defer r.mux.RUnlock()
	timings := make(TimingLog, len(r.timings))
	for tag, samples := range r.timings {
		cp := make([]Sample, len(samples))
		copy(cp, samples)
		timings[tag] = cp
	}
	return timings
}

func (r *Recorder) Tallies() map[string]int64 {
	r.mux.RLock()
	defer r.mux.RUnlock()
	tallies := make(map[string]int64, len(r.tallies))
	for key, n := range r.tallies {
		tallies[key] = n
	}
	return tallies
}

func (r *Recorder) Owners() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	owners := make([]string, len(r.owners))
	copy(owners, r.owners)
	return owners
}

func (r *Recorder) BulkTimings() []Sample {
	r.mux.RLock()
	defer r.mux.RUnlock()
	bulk := make([]Sample, len(r.bulk))
	copy(bulk, r.bulk)
	return bulk
}

// Snapshot is a point-in-time copy of everything the Recorder holds.
type Snapshot struct {
	StartTime   time.Time        `json:"startTime"`
	Owners      []string         `json:"owners"`
	Counters    map[Tag]int64    `json:"counters"`
	Tallies     map[string]int64 `json:"tallies"`
	Timings     TimingLog        `json:"timings"`
	BulkTimings []Sample         `json:"bulkTimings"`
}

func (r *Recorder) Snapshot() *Snapshot {
	return &Snapshot{
		StartTime:   r.StartTime(),
		Owners:      r.Owners(),
		Counters:    r.Counters(),
		Tallies:     r.Tallies(),
		Timings:     r.TimingLog(),
		BulkTimings: r.BulkTimings(),
	}
}
