package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kcz17/benchmetrics/bench"
	"github.com/kcz17/benchmetrics/clock"
	"github.com/kcz17/benchmetrics/collection"
	"github.com/kcz17/benchmetrics/config"
	"github.com/kcz17/benchmetrics/logging"
	"github.com/kcz17/benchmetrics/recorder"
	"github.com/kcz17/benchmetrics/report"
	"github.com/kcz17/benchmetrics/serving"
	"github.com/kcz17/benchmetrics/transport"
	"github.com/kcz17/benchmetrics/transport/redisqueue"
	"github.com/kcz17/benchmetrics/transport/rmqqueue"
	"github.com/kcz17/benchmetrics/workload"
)

func main() {
	conf, err := config.ReadConfig()
	if err != nil {
		log.Fatalf("could not load config: err = %v", err)
	}

	logger, err := logging.NewLogger(*conf.Logging.Driver, influxDBOptions(conf.Logging.InfluxDB))
	if err != nil {
		log.Fatalf("expected logging.NewLogger() returns nil err; got err = %v", err)
	}
	defer logger.Flush()

	queue, err := openQueue(conf.Queue)
	if err != nil {
		log.Fatalf("could not open %s queue: err = %v", *conf.Queue.Driver, err)
	}
	defer queue.Close()

	realtime := clock.NewRealtimeClock()
	rec := recorder.New(realtime)

	switch *conf.Role {
	case config.RoleWorker:
		err = runWorker(conf, rec, queue, logger)
	case config.RoleCoordinator:
		err = runCoordinator(conf, realtime, rec, queue, logger)
	}
	if err != nil {
		logger.Flush()
		log.Fatalf("%s failed: err = %v", *conf.Role, err)
	}
}

func runWorker(conf *config.Config, rec *recorder.Recorder, queue transport.Transport, logger logging.Logger) error {
	if *conf.API.Enabled {
		go serve(&serving.APIServer{Recorder: rec}, *conf.API.Addr)
	}

	w := workload.New(rec, workload.Options{
		Tag:          *conf.Workload.Tag,
		Iterations:   *conf.Workload.Iterations,
		MinMillis:    *conf.Workload.MinMillis,
		MaxMillis:    *conf.Workload.MaxMillis,
		MeanMillis:   *conf.Workload.MeanMillis,
		StddevMillis: *conf.Workload.StddevMillis,
		Seed:         uint64(time.Now().UnixNano()),
	})
	worker := bench.NewWorker(rec, collection.NewPublisher(queue), logger)
	return worker.Run(context.Background(), w.Run)
}

func runCoordinator(conf *config.Config, c clock.Clock, rec *recorder.Recorder, queue transport.Transport, logger logging.Logger) error {
	coordinator := bench.NewCoordinator(rec, collection.NewAggregator(queue, logger), bench.CoordinatorOptions{
		Collect: collection.CollectOptions{
			ExpectedWorkers: *conf.Collection.ExpectedWorkers,
			Timeout:         conf.Collection.Timeout(),
			SkipOnTimeout:   *conf.Collection.SkipOnTimeout,
		},
		Renderer:     report.NewRenderer(c, *conf.Report.Verbose),
		HistogramDir: *conf.Report.HistogramDir,
		Logger:       logger,
	})

	// With the API enabled, reports are rendered on demand instead of once.
	if *conf.API.Enabled {
		fmt.Printf("serving reports on %s\n", *conf.API.Addr)
		return (&serving.APIServer{Recorder: rec, Coordinator: coordinator, Clock: c}).ListenAndServe(*conf.API.Addr)
	}
	return coordinator.Report(context.Background(), os.Stdout)
}

func openQueue(conf config.Queue) (transport.Transport, error) {
	redis := conf.Redis
	switch *conf.Driver {
	case "rmq":
		return rmqqueue.NewRMQQueue(*redis.Addr, *redis.Password, *redis.DB, *conf.Name)
	default:
		return redisqueue.NewRedisQueue(*redis.Addr, *redis.Password, *redis.DB, *conf.Name), nil
	}
}

func serve(a *serving.APIServer, addr string) {
	if err := a.ListenAndServe(addr); err != nil {
		log.Fatalf("fasthttp: api server error: %v", err)
	}
}

func influxDBOptions(conf config.InfluxDB) logging.InfluxDBOptions {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return logging.InfluxDBOptions{
		Host:   deref(conf.Host),
		Token:  deref(conf.Token),
		Org:    deref(conf.Org),
		Bucket: deref(conf.Bucket),
	}
}
