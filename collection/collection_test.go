package collection

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/kcz17/benchmetrics/recorder"
	"github.com/kcz17/benchmetrics/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

func sample(offset time.Duration, seconds float64) recorder.Sample {
	return recorder.Sample{Start: epoch.Add(offset), Duration: time.Duration(seconds * float64(time.Second))}
}

// recordingDiagnostics captures the diagnostics emitted during collection.
type recordingDiagnostics struct {
	skipped   []string
	collected []int
}

func (d *recordingDiagnostics) LogSkippedWorker(message string) {
	d.skipped = append(d.skipped, message)
}

func (d *recordingDiagnostics) LogCollectedWorker(attempt int, _ int) {
	d.collected = append(d.collected, attempt)
}

// countingTransport counts every call made to it.
type countingTransport struct {
	calls int
}

func (t *countingTransport) Push(context.Context, []byte) error {
	t.calls++
	return nil
}

func (t *countingTransport) PopWithTimeout(context.Context, time.Duration) ([]byte, error) {
	t.calls++
	return nil, transport.ErrTimedOut
}

func (t *countingTransport) Close() error { return nil }

func publishAll(t *testing.T, q transport.Transport, logs ...recorder.TimingLog) {
	p := NewPublisher(q)
	for _, log := range logs {
		require.NoError(t, p.Publish(context.Background(), log))
	}
}

func workerLogs() []recorder.TimingLog {
	return []recorder.TimingLog{
		{"insert": {sample(0, 1), sample(time.Second, 2)}, "select": {sample(0, 0.5)}},
		{"insert": {sample(2*time.Second, 3)}},
		{"delete": {sample(0, 0.25)}, "select": {sample(time.Second, 0.75)}},
	}
}

// multiset flattens a dataset into sorted (tag, start, duration) strings.
func multiset(d *Dataset) map[string][]string {
	out := map[string][]string{}
	for _, tag := range d.Tags() {
		for _, s := range d.Samples(tag) {
			out[tag] = append(out[tag], s.Start.Format(time.RFC3339Nano)+"/"+s.Duration.String())
		}
		sort.Strings(out[tag])
	}
	return out
}

func TestAggregator_CollectMergesAllWorkers(t *testing.T) {
	q := transport.NewMemoryQueue(3)
	publishAll(t, q, workerLogs()...)
	diagnostics := &recordingDiagnostics{}

	c, err := NewAggregator(q, diagnostics).Collect(context.Background(), CollectOptions{
		ExpectedWorkers: 3,
		Timeout:         time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, []recorder.Tag{"insert", "select", "delete"}, c.Dataset.Tags())
	assert.Len(t, c.Dataset.Samples("insert"), 3)
	assert.Len(t, c.Dataset.Samples("select"), 2)
	assert.Len(t, c.Dataset.Samples("delete"), 1)
	assert.Equal(t, 6, c.Dataset.SampleCount())
	assert.Equal(t, []int{1, 2, 3}, diagnostics.collected)
	assert.Empty(t, c.Skipped())
}

func TestAggregator_CollectSkipsTimedOutWorker(t *testing.T) {
	q := transport.NewMemoryQueue(3)
	logs := workerLogs()
	publishAll(t, q, logs[0], logs[1])
	diagnostics := &recordingDiagnostics{}

	c, err := NewAggregator(q, diagnostics).Collect(context.Background(), CollectOptions{
		ExpectedWorkers: 3,
		Timeout:         10 * time.Millisecond,
		SkipOnTimeout:   true,
	})
	require.NoError(t, err)

	expected := NewDataset()
	expected.Merge(logs[0])
	expected.Merge(logs[1])
	assert.Equal(t, multiset(expected), multiset(c.Dataset))

	require.Len(t, diagnostics.skipped, 1)
	assert.Equal(t, "Timed out waiting for queue (0.01 sec, worker 3).", diagnostics.skipped[0])
	assert.Equal(t, []int{3}, c.Skipped())
}

func TestAggregator_CollectFailsOnTimeoutWithoutSkip(t *testing.T) {
	q := transport.NewMemoryQueue(3)
	logs := workerLogs()
	publishAll(t, q, logs[0], logs[1])
	diagnostics := &recordingDiagnostics{}

	c, err := NewAggregator(q, diagnostics).Collect(context.Background(), CollectOptions{
		ExpectedWorkers: 3,
		Timeout:         10 * time.Millisecond,
	})

	assert.Nil(t, c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCollectionTimeout))
	var timeoutErr *CollectionTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, 3, timeoutErr.Attempt)
	assert.Equal(t, 10*time.Millisecond, timeoutErr.Timeout)
	assert.Empty(t, diagnostics.skipped)
}

func TestAggregator_CollectZeroWorkersDoesNotTouchTransport(t *testing.T) {
	q := &countingTransport{}
	c, err := NewAggregator(q, &recordingDiagnostics{}).Collect(context.Background(), CollectOptions{
		ExpectedWorkers: 0,
		Timeout:         time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Dataset.Len())
	assert.Equal(t, 0, q.calls)
}

func TestAggregator_CollectRejectsNegativeWorkers(t *testing.T) {
	q := &countingTransport{}
	_, err := NewAggregator(q, &recordingDiagnostics{}).Collect(context.Background(), CollectOptions{ExpectedWorkers: -1})
	assert.Error(t, err)
	assert.Equal(t, 0, q.calls)
}

func TestAggregator_CollectFailsOnMalformedPayload(t *testing.T) {
	q := transport.NewMemoryQueue(2)
	require.NoError(t, q.Push(context.Background(), []byte("not json")))

	_, err := NewAggregator(q, &recordingDiagnostics{}).Collect(context.Background(), CollectOptions{
		ExpectedWorkers: 1,
		Timeout:         time.Second,
		SkipOnTimeout:   true,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedPayload))
	assert.False(t, errors.Is(err, ErrCollectionTimeout))

	var malformed *MalformedPayloadError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 1, malformed.Attempt)
}

func TestAggregator_CollectDefaultsNilDiagnostics(t *testing.T) {
	q := transport.NewMemoryQueue(1)
	publishAll(t, q, recorder.TimingLog{"a": {sample(0, 1)}})

	collection, err := NewAggregator(q, nil).Collect(context.Background(), CollectOptions{
		ExpectedWorkers: 2,
		Timeout:         10 * time.Millisecond,
		SkipOnTimeout:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, collection.Skipped())
	assert.Equal(t, 1, collection.Dataset.SampleCount())
}

func TestAggregator_CollectSurfacesTransportError(t *testing.T) {
	q := transport.NewMemoryQueue(1)
	require.NoError(t, q.Close())

	_, err := NewAggregator(q, &recordingDiagnostics{}).Collect(context.Background(), CollectOptions{
		ExpectedWorkers: 1,
		Timeout:         time.Second,
		SkipOnTimeout:   true,
	})
	var transportErr *transport.Error
	assert.True(t, errors.As(err, &transportErr))
	assert.True(t, errors.Is(err, transport.ErrClosed))
}

func TestAggregator_CollectHonoursContext(t *testing.T) {
	q := transport.NewMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(q, &recordingDiagnostics{}).Collect(ctx, CollectOptions{
		ExpectedWorkers: 1,
		Timeout:         time.Minute,
		SkipOnTimeout:   true,
	})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDataset_MergeIsOrderIndependent(t *testing.T) {
	logs := workerLogs()
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}, {2, 0, 1}}

	var want map[string][]string
	for _, order := range orders {
		d := NewDataset()
		for _, i := range order {
			d.Merge(logs[i])
		}
		got := multiset(d)
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want, got, "order %v", order)
	}
}

func TestDataset_MergeIsAssociative(t *testing.T) {
	logs := workerLogs()
	single := func(log recorder.TimingLog) *Dataset {
		d := NewDataset()
		d.Merge(log)
		return d
	}

	// (a + b) + c
	left := single(logs[0])
	left.MergeDataset(single(logs[1]))
	left.MergeDataset(single(logs[2]))

	// a + (b + c)
	bc := single(logs[1])
	bc.MergeDataset(single(logs[2]))
	right := single(logs[0])
	right.MergeDataset(bc)

	assert.Equal(t, multiset(left), multiset(right))
}

func TestDataset_IgnoresEmptyTags(t *testing.T) {
	d := NewDataset()
	d.Merge(recorder.TimingLog{"empty": {}, "full": {sample(0, 1)}})
	d.Add("also-empty")
	assert.Equal(t, []recorder.Tag{"full"}, d.Tags())
	assert.Nil(t, d.Samples("empty"))
}

func TestPublisher_PublishSurfacesPushFailure(t *testing.T) {
	q := transport.NewMemoryQueue(1)
	require.NoError(t, q.Close())

	err := NewPublisher(q).Publish(context.Background(), recorder.TimingLog{"a": {sample(0, 1)}})
	assert.True(t, errors.Is(err, transport.ErrClosed))
}

func TestPayload_RoundTripKeepsSampleOrder(t *testing.T) {
	log := recorder.TimingLog{"insert": {
		sample(2*time.Second, 3),
		sample(0, 1),
		sample(time.Second, 2),
		{Start: epoch.Add(3 * time.Second), Duration: 15839 * time.Microsecond},
	}}
	b, err := EncodePayload(log)
	require.NoError(t, err)

	decoded, err := DecodePayload(b)
	require.NoError(t, err)
	require.Len(t, decoded["insert"], 4)
	for i, s := range log["insert"] {
		assert.True(t, s.Start.Equal(decoded["insert"][i].Start))
		assert.Equal(t, s.Duration, decoded["insert"][i].Duration)
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		tags    int
	}{
		{name: "Decodes empty object", payload: `{}`},
		{name: "Decodes Ruby worker payload", payload: `{"bulk":[["2020-01-01 12:00:00 +0000",0.5]]}`, tags: 1},
		{name: "Rejects null", payload: `null`, wantErr: true},
		{name: "Rejects array", payload: `[]`, wantErr: true},
		{name: "Rejects garbage", payload: `{"a":`, wantErr: true},
		{name: "Rejects negative duration", payload: `{"q":[["2020-01-01T00:00:00Z",-0.5]]}`, wantErr: true},
		{name: "Rejects duration overflowing int64", payload: `{"q":[["2020-01-01T00:00:00Z",1e10]]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := DecodePayload([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, log, tt.tags)
		})
	}
}

func TestStep(t *testing.T) {
	payload, err := EncodePayload(recorder.TimingLog{"a": {sample(0, 1)}})
	require.NoError(t, err)
	boom := errors.New("connection reset")

	tests := []struct {
		name        string
		payload     []byte
		popErr      error
		skip        bool
		wantOutcome Outcome
		wantErr     error
	}{
		{name: "Collects payload", payload: payload, wantOutcome: Collected},
		{name: "Skips timeout", popErr: transport.ErrTimedOut, skip: true, wantOutcome: Skipped},
		{name: "Times out without skip", popErr: transport.ErrTimedOut, wantOutcome: TimedOut, wantErr: ErrCollectionTimeout},
		{name: "Fails on malformed payload", payload: []byte("{"), skip: true, wantErr: ErrMalformedPayload},
		{name: "Fails on overflowing duration", payload: []byte(`{"q":[["2020-01-01T00:00:00Z",1e10]]}`), skip: true, wantErr: ErrMalformedPayload},
		{name: "Fails on transport error", popErr: boom, skip: true, wantErr: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempt, log, err := Step(2, time.Second, tt.skip, tt.payload, tt.popErr)
			assert.Equal(t, 2, attempt.Index)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "err = %v", err)
				assert.Nil(t, log)
				if tt.wantOutcome == TimedOut {
					assert.Equal(t, TimedOut, attempt.Outcome)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, attempt.Outcome)
			if tt.wantOutcome == Collected {
				assert.Len(t, log, 1)
			}
		})
	}
}
