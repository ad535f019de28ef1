package logging

import (
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/kcz17/benchmetrics/statistics"
)

// influxDBLogger logs the output to an external InfluxDB instance.
type influxDBLogger struct {
	client      influxdb2.Client
	asyncWriter api.WriteAPI
}

func NewInfluxDBLogger(baseURL, authToken, org, bucket string) *influxDBLogger {
	options := influxdb2.DefaultOptions()
	options.WriteOptions().SetBatchSize(1000)
	options.WriteOptions().SetFlushInterval(250)

	client := influxdb2.NewClientWithOptions(baseURL, authToken, options)
	writeAPI := client.WriteAPI(org, bucket)

	// Create a goroutine for reading and logging async write errors.
	errorsCh := writeAPI.Errors()
	go func() {
		for err := range errorsCh {
			log.Printf("influxdb2 logging async write error: %v\n", err)
		}
	}()

	return &influxDBLogger{
		client:      client,
		asyncWriter: writeAPI,
	}
}

func (l *influxDBLogger) LogSkippedWorker(message string) {
	log.Println(message)
	p := influxdb2.NewPointWithMeasurement("bench_skipped_worker").
		AddField("message", message).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogCollectedWorker(attempt int, tags int) {
	p := influxdb2.NewPointWithMeasurement("bench_collected_worker").
		AddField("attempt", attempt).
		AddField("tags", tags).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogPublished(tags int, samples int) {
	p := influxdb2.NewPointWithMeasurement("bench_published").
		AddField("tags", tags).
		AddField("samples", samples).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogTagStatistics(stats []statistics.TagStatistics) {
	timestamp := time.Now()
	for _, s := range stats {
		p := influxdb2.NewPointWithMeasurement("bench_tag_statistics").
			AddTag("tag", s.Tag).
			AddField("count", s.Count).
			AddField("total", s.Total).
			AddField("average", s.Average).
			AddField("highest", s.Highest).
			AddField("lowest", s.Lowest).
			AddField("sd", s.StandardDeviation).
			AddField("opsec", s.OperationsPerSecond).
			AddField("p50", s.Percentiles.P50).
			AddField("p95", s.Percentiles.P95).
			AddField("p99", s.Percentiles.P99).
			SetTime(timestamp)
		l.asyncWriter.WritePoint(p)
	}
}

// Flush blocks until buffered points are written and closes the client.
func (l *influxDBLogger) Flush() {
	l.asyncWriter.Flush()
	l.client.Close()
}
