package logging

import (
	"io"
	"log"
	"os"

	"github.com/kcz17/benchmetrics/statistics"
)

// stdoutLogger logs the output to standard output.
type stdoutLogger struct {
	logger *log.Logger
}

func NewStdoutLogger() *stdoutLogger {
	return NewWriterLogger(os.Stdout)
}

// NewWriterLogger logs to w in the same format as the stdout logger.
func NewWriterLogger(w io.Writer) *stdoutLogger {
	return &stdoutLogger{logger: log.New(w, "", log.LstdFlags)}
}

func (l *stdoutLogger) LogSkippedWorker(message string) {
	l.logger.Println(message)
}

func (l *stdoutLogger) LogCollectedWorker(attempt int, tags int) {
	l.logger.Printf("collected payload from worker %d with %d tags\n", attempt, tags)
}

func (l *stdoutLogger) LogPublished(tags int, samples int) {
	l.logger.Printf("published %d samples over %d tags\n", samples, tags)
}

func (*stdoutLogger) LogTagStatistics(_ []statistics.TagStatistics) {
	// The rendered report already carries the statistics.
	return
}

func (*stdoutLogger) Flush() {
	return
}
