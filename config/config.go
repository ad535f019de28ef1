package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	RoleWorker      = "worker"
	RoleCoordinator = "coordinator"
)

type Config struct {
	Role       *string    `mapstructure:"role" validate:"required,oneof=worker coordinator"`
	Collection Collection `mapstructure:"collection" validate:"required"`
	Report     Report     `mapstructure:"report" validate:"required"`
	Queue      Queue      `mapstructure:"queue" validate:"required"`
	Logging    Logging    `mapstructure:"logging" validate:"required"`
	API        API        `mapstructure:"api" validate:"required"`
	Workload   Workload   `mapstructure:"workload" validate:"required"`
}

type Collection struct {
	// ExpectedWorkers is the number of payloads the coordinator waits for.
	ExpectedWorkers *int     `mapstructure:"expectedWorkers" validate:"required,min=0"`
	TimeoutSeconds  *float64 `mapstructure:"timeoutSeconds" validate:"required,gt=0"`
	SkipOnTimeout   *bool    `mapstructure:"skipOnTimeout" validate:"required"`
}

// Timeout bounds each pop from the queue.
func (c Collection) Timeout() time.Duration {
	return time.Duration(*c.TimeoutSeconds * float64(time.Second))
}

type Report struct {
	Verbose *bool `mapstructure:"verbose" validate:"required"`
	// HistogramDir enables per-tag histogram PNGs if set.
	HistogramDir *string `mapstructure:"histogramDir"`
}

type Queue struct {
	Driver *string `mapstructure:"driver" validate:"required,oneof=redis rmq"`
	Name   *string `mapstructure:"name" validate:"required,min=1"`
	Redis  Redis   `mapstructure:"redis" validate:"required"`
}

type Redis struct {
	Addr     *string `mapstructure:"addr" validate:"required"`
	Password *string `mapstructure:"password" validate:"required"`
	DB       *int    `mapstructure:"db" validate:"required,min=0"`
}

type Logging struct {
	Driver   *string  `mapstructure:"driver" validate:"required,oneof=noop stdout influxdb"`
	InfluxDB InfluxDB `mapstructure:"influxdb"`
}

// InfluxDB fields are only checked when the influxdb logging driver is used.
type InfluxDB struct {
	Host   *string `mapstructure:"host"`
	Token  *string `mapstructure:"token"`
	Org    *string `mapstructure:"org"`
	Bucket *string `mapstructure:"bucket"`
}

type API struct {
	Enabled *bool   `mapstructure:"enabled" validate:"required"`
	Addr    *string `mapstructure:"addr" validate:"required"`
}

// Workload configures the synthetic workload run by workers.
type Workload struct {
	Tag          *string  `mapstructure:"tag" validate:"required,min=1"`
	Iterations   *int     `mapstructure:"iterations" validate:"required,min=0"`
	MinMillis    *float64 `mapstructure:"minMillis" validate:"required,min=0"`
	MaxMillis    *float64 `mapstructure:"maxMillis" validate:"required,min=0"`
	MeanMillis   *float64 `mapstructure:"meanMillis" validate:"required"`
	StddevMillis *float64 `mapstructure:"stddevMillis" validate:"required,gt=0"`
}

func setDefaults(v *viper.Viper) {
	// Registered so BENCH_ROLE is read without a config file entry.
	v.SetDefault("Role", "")

	v.SetDefault("Collection.ExpectedWorkers", 0)
	v.SetDefault("Collection.TimeoutSeconds", 1800)
	v.SetDefault("Collection.SkipOnTimeout", false)

	v.SetDefault("Report.Verbose", false)
	v.SetDefault("Report.HistogramDir", "")

	v.SetDefault("Queue.Driver", "redis")
	v.SetDefault("Queue.Name", "metrics")
	v.SetDefault("Queue.Redis.Addr", "localhost:6379")
	v.SetDefault("Queue.Redis.Password", "")
	v.SetDefault("Queue.Redis.DB", 0)

	v.SetDefault("Logging.Driver", "stdout")

	v.SetDefault("API.Enabled", false)
	v.SetDefault("API.Addr", ":8080")

	v.SetDefault("Workload.Tag", "workload")
	v.SetDefault("Workload.Iterations", 100)
	v.SetDefault("Workload.MinMillis", 1)
	v.SetDefault("Workload.MaxMillis", 50)
	v.SetDefault("Workload.MeanMillis", 10)
	v.SetDefault("Workload.StddevMillis", 5)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("BENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	v.SetConfigType("yaml")
	return v
}

// ReadConfig reads config.yaml from the working directory or /app, with
// BENCH_-prefixed environment variables taking precedence.
func ReadConfig() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config.yaml not found in . or /app: %w", err)
		}
		return nil, fmt.Errorf("error when reading config file: %w", err)
	}
	return decode(v)
}

// Parse reads YAML configuration from r.
func Parse(r io.Reader) (*Config, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error when reading config: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error occured while decoding configuration: %w", err)
	}
	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func validate(config *Config) error {
	validate := validator.New()
	err := validate.Struct(config)
	if err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("unable to validate config: %w", err)
		}

		var messages []string
		for _, fieldErr := range err.(validator.ValidationErrors) {
			messages = append(messages, "\t"+fieldErr.Error())
		}
		return fmt.Errorf("encountered validation errors:\n%s", strings.Join(messages, "\n"))
	}

	if *config.Workload.MaxMillis < *config.Workload.MinMillis {
		return fmt.Errorf("expected workload.maxMillis >= workload.minMillis; got %v < %v", *config.Workload.MaxMillis, *config.Workload.MinMillis)
	}

	if *config.Logging.Driver == "influxdb" {
		influx := config.Logging.InfluxDB
		fields := []struct {
			name  string
			value *string
		}{
			{"host", influx.Host},
			{"token", influx.Token},
			{"org", influx.Org},
			{"bucket", influx.Bucket},
		}
		for _, field := range fields {
			if field.value == nil || *field.value == "" {
				return fmt.Errorf("expected logging.influxdb.%s when logging.driver is influxdb", field.name)
			}
		}
	}
	return nil
}
