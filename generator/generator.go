package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"order-events/clock"
	"order-events/domain"
)

const tracerName = "order-events/generator"

// ErrInvalidBatchSize is returned by New when the batch size is below one.
var ErrInvalidBatchSize = errors.New("batch size must be at least 1")

// BatchWriter persists one batch and returns where it went.
type BatchWriter interface {
	WriteBatch(ctx context.Context, events []domain.Event) (string, error)
}

// Publisher receives every batch after it has been written.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, events []domain.Event) error
}

// Config holds the generation parameters.
type Config struct {
	Orders    int
	BatchSize int
	Interval  time.Duration
}

// Summary describes a finished run.
type Summary struct {
	Orders  int
	Events  int
	Batches int
	Files   []string
	Elapsed time.Duration
}

// Generator produces order event pairs and flushes them in fixed-size batches.
type Generator struct {
	cfg        Config
	writer     BatchWriter
	publishers []Publisher
	ids        domain.IDSource
	clock      clock.Clock
	pause      func(time.Duration)
	logger     *log.Logger
	tracer     trace.Tracer
}

type Option func(*Generator)

// WithPublishers fans every written batch out to the given publishers, in order.
func WithPublishers(p ...Publisher) Option {
	return func(g *Generator) {
		g.publishers = append(g.publishers, p...)
	}
}

func WithIDSource(ids domain.IDSource) Option {
	return func(g *Generator) {
		g.ids = ids
	}
}

func WithClock(c clock.Clock) Option {
	return func(g *Generator) {
		g.clock = c
	}
}

// WithPause replaces time.Sleep as the wait between file writes.
func WithPause(pause func(time.Duration)) Option {
	return func(g *Generator) {
		g.pause = pause
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// New builds a Generator writing through w.
func New(cfg Config, w BatchWriter, opts ...Option) (*Generator, error) {
	if w == nil {
		return nil, errors.New("batch writer is required")
	}
	if cfg.BatchSize < 1 {
		return nil, ErrInvalidBatchSize
	}
	g := &Generator{
		cfg:    cfg,
		writer: w,
		clock:  clock.NewSystem(),
		pause:  time.Sleep,
		logger: log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.ids == nil {
		ids, err := domain.NewUUIDSource(domain.UUIDv1)
		if err != nil {
			return nil, err
		}
		g.ids = ids
	}
	g.tracer = otel.Tracer(tracerName)
	return g, nil
}

// state is owned by a single Run call.
type state struct {
	pending []domain.Event
	orders  int
	events  int
	files   []string
}

func (s *state) summary(start time.Time) Summary {
	return Summary{
		Orders:  s.orders,
		Events:  s.events,
		Batches: len(s.files),
		Files:   s.files,
		Elapsed: time.Since(start),
	}
}

// Run generates all configured orders. Every batch but the last holds exactly
// BatchSize events; the remainder is flushed as a final, possibly short, batch.
// Any writer or publisher failure stops the run; files already written remain.
func (g *Generator) Run(ctx context.Context) (Summary, error) {
	ctx, span := g.tracer.Start(ctx, "generator.run", trace.WithAttributes(
		attribute.Int("orders.requested", g.cfg.Orders),
		attribute.Int("batch.size", g.cfg.BatchSize),
		attribute.Int64("batch.interval_ms", g.cfg.Interval.Milliseconds()),
	))
	defer span.End()

	start := time.Now()
	st := &state{pending: make([]domain.Event, 0, g.cfg.BatchSize+1)}

	for i := 0; i < g.cfg.Orders; i++ {
		if err := ctx.Err(); err != nil {
			return g.fail(span, st, start, err)
		}
		id, err := g.ids.NewID()
		if err != nil {
			return g.fail(span, st, start, fmt.Errorf("order %d: new id: %w", i, err))
		}
		pair := domain.NewPair(i, id, g.clock.Now())
		st.pending = append(st.pending, pair[0], pair[1])
		st.orders++
		st.events += len(pair)

		for len(st.pending) >= g.cfg.BatchSize {
			if err := g.flush(ctx, st, g.cfg.BatchSize); err != nil {
				return g.fail(span, st, start, err)
			}
		}
	}
	if len(st.pending) > 0 {
		if err := g.flush(ctx, st, len(st.pending)); err != nil {
			return g.fail(span, st, start, err)
		}
	}

	summary := st.summary(start)
	span.SetAttributes(
		attribute.Int("orders.generated", summary.Orders),
		attribute.Int("events.generated", summary.Events),
		attribute.Int("batches.written", summary.Batches),
	)
	g.logger.WithFields(log.Fields{
		"orders":     summary.Orders,
		"events":     summary.Events,
		"batches":    summary.Batches,
		"elapsed_ms": durationToMillis(summary.Elapsed),
	}).Info("generator.run.complete")
	return summary, nil
}

// flush hands the first n pending events to the writer and publishers and
// drops them from the queue. Every flush after the first waits Interval.
func (g *Generator) flush(ctx context.Context, st *state, n int) error {
	index := len(st.files) + 1
	if index > 1 && g.cfg.Interval > 0 {
		g.pause(g.cfg.Interval)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := g.tracer.Start(ctx, "generator.flush", trace.WithAttributes(
		attribute.Int("batch.index", index),
		attribute.Int("batch.events", n),
	))
	defer span.End()

	batch := st.pending[:n]
	path, err := g.writer.WriteBatch(ctx, batch)
	if err != nil {
		err = fmt.Errorf("flush batch %d: write file: %w", index, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.String("batch.file", path))

	for _, p := range g.publishers {
		if err := p.Publish(ctx, batch); err != nil {
			err = fmt.Errorf("flush batch %d: %s: %w", index, p.Name(), err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	st.pending = append(st.pending[:0], st.pending[n:]...)
	st.files = append(st.files, path)

	g.logger.WithFields(log.Fields{
		"batch":  index,
		"events": n,
		"file":   path,
	}).Debug("generator.batch.flushed")
	return nil
}

func (g *Generator) fail(span trace.Span, st *state, start time.Time, err error) (Summary, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return st.summary(start), err
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
