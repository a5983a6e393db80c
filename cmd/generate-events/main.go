// Command generate-events writes paired order lifecycle events as
// line-delimited JSON files, one batch per file, at a fixed cadence.
//
//	generate-events --num_of_orders 10 --batch_size 5 --interval_seconds 1 --output_directory ./out
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"order-events/clock"
	"order-events/config"
	"order-events/domain"
	"order-events/generator"
	"order-events/storage"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "env: %v\n", err)
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Getenv, os.Stderr)
	stop()
	os.Exit(code)
}

type publisher interface {
	generator.Publisher
	Close() error
}

func run(ctx context.Context, args []string, getenv func(string) string, stderr io.Writer) int {
	cfg, err := config.Parse("generate-events", args, getenv, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "generate-events: %v\n", err)
		return exitUsage
	}

	logger := newLogger(cfg, stderr)
	logger.WithFields(log.Fields{
		"orders":     cfg.Orders,
		"batch_size": cfg.BatchSize,
		"interval_s": cfg.IntervalSeconds,
		"output_dir": cfg.OutputDirectory,
	}).Info("generator starting")

	ids, err := domain.NewUUIDSource(cfg.IDVersion)
	if err != nil {
		fmt.Fprintf(stderr, "generate-events: %v\n", err)
		return exitUsage
	}

	publishers, err := openPublishers(ctx, cfg.Sinks)
	if err != nil {
		logger.WithError(err).Error("publishers")
		return exitFailure
	}
	defer func() {
		for _, p := range publishers {
			if err := p.Close(); err != nil {
				logger.WithError(err).Warnf("close %s", p.Name())
			}
		}
	}()

	sysClock := clock.NewSystem()
	pubs := make([]generator.Publisher, 0, len(publishers))
	for _, p := range publishers {
		logger.Infof("publishing batches to %s", p.Name())
		pubs = append(pubs, p)
	}
	gen, err := generator.New(
		generator.Config{Orders: cfg.Orders, BatchSize: cfg.BatchSize, Interval: cfg.Interval()},
		storage.NewFileWriter(cfg.OutputDirectory, sysClock),
		generator.WithPublishers(pubs...),
		generator.WithIDSource(ids),
		generator.WithClock(sysClock),
		generator.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintf(stderr, "generate-events: %v\n", err)
		return exitUsage
	}

	if _, err := gen.Run(ctx); err != nil {
		logger.WithError(err).Error("generation failed")
		return exitFailure
	}
	return exitOK
}

func newLogger(cfg config.Config, out io.Writer) *log.Logger {
	logger := log.New()
	logger.SetOutput(out)
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	return logger
}

func openPublishers(ctx context.Context, sinks config.SinkConfig) ([]publisher, error) {
	var out []publisher
	closeAll := func() {
		for _, p := range out {
			p.Close()
		}
	}
	if sinks.QueueEnabled() {
		q, err := storage.NewQueuePublisher(ctx, sinks.StorageConnectionString, sinks.EventsQueue)
		if err != nil {
			return nil, fmt.Errorf("queue %s: %w", sinks.EventsQueue, err)
		}
		out = append(out, q)
	}
	if sinks.RedisEnabled() {
		rc := redis.NewClient(storage.ParseRedisOptions(sinks.RedisConnectionString))
		if err := rc.Ping(ctx).Err(); err != nil {
			rc.Close()
			closeAll()
			return nil, fmt.Errorf("redis: %w", err)
		}
		out = append(out, storage.NewRedisPublisher(rc, sinks.EventsChannel))
	}
	if sinks.KafkaEnabled() {
		out = append(out, storage.NewKafkaPublisher(sinks.KafkaBrokers, sinks.KafkaTopic))
	}
	return out, nil
}
