package logging

import "github.com/kcz17/benchmetrics/statistics"

type Logger interface {
	LogSkippedWorker(message string)          // Logs a worker slot that timed out and was skipped.
	LogCollectedWorker(attempt int, tags int) // Logs a payload merged from the attempt-th worker.
	LogPublished(tags int, samples int)       // Logs a worker's timing log being pushed.
	LogTagStatistics(stats []statistics.TagStatistics)
	Flush()
}

// noopLogger does not perform any logging.
type noopLogger struct{}

func NewNoopLogger() *noopLogger {
	return &noopLogger{}
}

func (*noopLogger) LogSkippedWorker(string) {
	return
}

func (*noopLogger) LogCollectedWorker(int, int) {
	return
}

func (*noopLogger) LogPublished(int, int) {
	return
}

func (*noopLogger) LogTagStatistics([]statistics.TagStatistics) {
	return
}

func (*noopLogger) Flush() {
	return
}
