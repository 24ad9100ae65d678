package repo

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/go-odb/odb/event"
	"github.com/go-odb/odb/olog"
)

// Transition computes the next snapshot in place on a private clone of the
// current one. It must be pure: no side effects besides mutating the clone,
// because a lost compare-and-swap race recomputes it against a fresh clone.
// The returned builders are published only after the clone is committed.
type Transition func(*Tables) ([]event.Builder, error)

// DBOption configures a DB.
type DBOption func(*DB)

// WithLogger sets the logger. Contention retries are logged at debug level.
func WithLogger(logger *slog.Logger) DBOption {
	return func(d *DB) {
		d.log = logger
	}
}

// WithBus sets the bus committed changes are published to.
func WithBus(bus *event.Bus) DBOption {
	return func(d *DB) {
		d.bus = bus
	}
}

// WithSnapshot pre-seeds the store. The given tables become the initial
// snapshot; the caller must not touch them afterwards.
func WithSnapshot(tables *Tables) DBOption {
	return func(d *DB) {
		d.snapshot.Store(tables)
	}
}

// WithTracerProvider enables a span per store operation.
func WithTracerProvider(tp trace.TracerProvider) DBOption {
	return func(d *DB) {
		d.tracer = tp.Tracer(instrumentationName)
	}
}

// WithMeterProvider enables commit, conflict, and duration metrics.
func WithMeterProvider(mp metric.MeterProvider) DBOption {
	return func(d *DB) {
		d.meter = mp.Meter(instrumentationName)
	}
}

const instrumentationName = "odb.repo"

// NewDB returns an empty in-memory store. One DB has process-wide lifetime:
// initialise it once (empty or via WithSnapshot) and pass it to every
// repository; there is no teardown beyond process exit.
func NewDB(opts ...DBOption) *DB {
	d := &DB{ //nolint:exhaustruct // zero values settled below
		log:    olog.NewNoop(),
		tracer: tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:  metricnoop.NewMeterProvider().Meter(instrumentationName),
	}
	d.snapshot.Store(NewTables())

	for _, opt := range opts {
		opt(d)
	}

	if d.bus == nil {
		d.bus = event.NewBus(event.WithLogger(d.log))
	}

	d.commits, _ = d.meter.Int64Counter("odb_commits_total",
		metric.WithDescription("snapshot transitions committed"))
	d.conflicts, _ = d.meter.Int64Counter("odb_conflicts_total",
		metric.WithDescription("compare-and-swap attempts lost to a concurrent commit"))
	d.duration, _ = d.meter.Float64Histogram("odb_commit_duration_seconds",
		metric.WithDescription("time from first attempt to commit"))

	return d
}

// DB owns the single shared snapshot. Modify is the sole mutation gateway;
// nothing else writes the snapshot.
type DB struct {
	snapshot atomic.Pointer[Tables]
	bus      *event.Bus

	log    *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	commits   metric.Int64Counter
	conflicts metric.Int64Counter
	duration  metric.Float64Histogram
}

// Bus returns the bus committed changes are published to.
func (d *DB) Bus() *event.Bus {
	return d.bus
}

// Snapshot returns the current snapshot for reading.
// The caller must not mutate it.
func (d *DB) Snapshot() *Tables {
	return d.snapshot.Load()
}

var errConflict = errors.New("snapshot changed concurrently")

// errNoChange is returned by a transition to report that the snapshot needs
// no change. Modify treats it as success: the current snapshot stays
// installed, no commit is counted, and no events publish.
var errNoChange = errors.New("no change")

// Modify runs fn as one atomic read-compute-install cycle: fn sees a clone
// of the snapshot it read, and the clone is installed only if the snapshot
// is still the one read, otherwise the cycle retries against the fresh
// snapshot with backoff. If fn returns an error nothing is installed and the
// error is returned as is; errNoChange keeps the read snapshot installed and
// counts as success. After a successful install the events built by fn are
// published in order.
func (d *DB) Modify(ctx context.Context, op string, fn Transition) error {
	ctx, span := d.tracer.Start(ctx, op)
	defer span.End()

	opAttr := metric.WithAttributes(attribute.String("op", op))
	start := time.Now()

	var (
		pending   []event.Builder
		installed bool
	)

	attempt := func() error {
		cur := d.snapshot.Load()
		next := cur.clone()

		events, err := fn(next)
		if errors.Is(err, errNoChange) {
			return nil // the snapshot read stays installed, nothing to swap
		}

		if err != nil {
			return backoff.Permanent(err)
		}

		if !d.snapshot.CompareAndSwap(cur, next) {
			d.conflicts.Add(ctx, 1, opAttr)
			d.log.LogAttrs(ctx, slog.LevelDebug, "snapshot conflict, retrying", slog.String("op", op))

			return errConflict
		}

		pending = events
		installed = true

		return nil
	}

	err := backoff.Retry(attempt, backoff.WithContext(contentionBackOff(), ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, errConflict) {
			return ctxErr //nolint:wrapcheck // context cancellation is returned on purpose
		}

		return err //nolint:wrapcheck // fn errors carry the failure class already
	}

	if !installed {
		return nil
	}

	d.commits.Add(ctx, 1, opAttr)
	d.duration.Record(ctx, time.Since(start).Seconds(), opAttr)

	for _, build := range pending {
		d.bus.Publish(build)
	}

	return nil
}

// contentionBackOff spaces out retries of a lost compare-and-swap.
// Contention windows are tiny, so intervals start in the microseconds.
func contentionBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Microsecond
	b.MaxInterval = 5 * time.Millisecond
	b.MaxElapsedTime = 0 // retry until the context is done

	return b
}
