package recorder

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Tag identifies a measured operation or call site.
type Tag = string

// Sample is one timed execution: when it started and how long it took.
type Sample struct {
	Start    time.Time
	Duration time.Duration
}

// TimingLog maps a tag to its samples in the order they were recorded.
type TimingLog map[Tag][]Sample

// rubyTimeLayout is how Time#to_json renders timestamps, accepted on decode
// so payloads pushed by older workers still merge.
const rubyTimeLayout = "2006-01-02 15:04:05 -0700"

// MarshalJSON encodes the sample as a [timestamp, seconds] pair.
func (s Sample) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{
		s.Start.Format(time.RFC3339Nano),
		s.Duration.Seconds(),
	})
}

func (s *Sample) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("expected sample as [timestamp, seconds]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("expected sample with 2 elements; got %d", len(pair))
	}

	var stamp string
	if err := json.Unmarshal(pair[0], &stamp); err != nil {
		return fmt.Errorf("expected sample timestamp string: %w", err)
	}
	start, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		var rubyErr error
		if start, rubyErr = time.Parse(rubyTimeLayout, stamp); rubyErr != nil {
			return fmt.Errorf("could not parse sample timestamp %q: %w", stamp, err)
		}
	}

	var seconds float64
	if err := json.Unmarshal(pair[1], &seconds); err != nil {
		return fmt.Errorf("expected sample duration in seconds: %w", err)
	}
	if seconds < 0 {
		return errors.New("expected non-negative sample duration")
	}
	// float64(math.MaxInt64) is 2^63, the first value that does not fit.
	nanos := math.Round(seconds * float64(time.Second))
	if nanos >= float64(math.MaxInt64) {
		return fmt.Errorf("expected sample duration below %v; got %g sec", time.Duration(math.MaxInt64), seconds)
	}

	s.Start = start
	s.Duration = time.Duration(nanos)
	return nil
}

// Seconds returns the duration as fractional seconds.
func (s Sample) Seconds() float64 {
	return s.Duration.Seconds()
}
