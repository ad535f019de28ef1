package logging

import "fmt"

const (
	DriverNoop     = "noop"
	DriverStdout   = "stdout"
	DriverInfluxDB = "influxdb"
)

type InfluxDBOptions struct {
	Host   string
	Token  string
	Org    string
	Bucket string
}

// NewLogger selects a Logger implementation by driver name.
func NewLogger(driver string, influx InfluxDBOptions) (Logger, error) {
	switch driver {
	case DriverNoop:
		return NewNoopLogger(), nil
	case DriverStdout:
		return NewStdoutLogger(), nil
	case DriverInfluxDB:
		return NewInfluxDBLogger(influx.Host, influx.Token, influx.Org, influx.Bucket), nil
	default:
		return nil, fmt.Errorf("expected logging driver one of {%s, %s, %s}; got %s", DriverNoop, DriverStdout, DriverInfluxDB, driver)
	}
}
