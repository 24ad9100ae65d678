package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/go-odb/odb/olog"
)

const defaultBuffer = 64

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBuffer sets the queue size of each subscriber. When a subscriber's
// queue is full the oldest event is dropped, so slow subscribers never block
// a publisher.
func WithBuffer(size int) BusOption {
	return func(b *Bus) {
		if size > 0 {
			b.buffer = size
		}
	}
}

// WithLogger sets the logger used to report dropped events.
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		b.log = logger
	}
}

// NewBus returns a broadcast bus. Publishing is fire-and-forget: every
// currently registered subscriber receives the event on its own queue,
// delivery is best effort.
func NewBus(opts ...BusOption) *Bus {
	bus := &Bus{
		mu:     sync.Mutex{},
		subs:   map[uuid.UUID]chan Envelope{},
		seq:    0,
		buffer: defaultBuffer,
		log:    olog.NewNoop(),
		closed: false,
	}

	for _, opt := range opts {
		opt(bus)
	}

	return bus
}

type Bus struct { //nolint:govet // grouping of mutex over alignment
	mu     sync.Mutex
	subs   map[uuid.UUID]chan Envelope
	seq    uint64
	closed bool

	buffer int
	log    *slog.Logger
}

// Subscribe registers a new subscriber and returns its queue together with a
// cancel function. Cancel closes the queue; pending events stay readable.
func (b *Bus) Subscribe() (<-chan Envelope, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Envelope, b.buffer)

	if b.closed {
		close(ch)

		return ch, func() {}
	}

	id := uuid.New()
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}

// Publish assigns the next sequence number, builds the event, and fans it
// out to all subscribers without blocking. If a subscriber's queue is full
// its oldest event is dropped to make room.
func (b *Bus) Publish(build Builder) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.seq++
	env := build(b.seq)

	for _, ch := range b.subs {
		select {
		case ch <- env:
		default:
			select { // full: drop the oldest, then retry once
			case dropped := <-ch:
				b.log.LogAttrs(context.Background(), slog.LevelDebug, "subscriber queue full, dropping oldest event",
					slog.String("entity", dropped.Entity()),
					slog.Uint64("sequence", dropped.Sequence()),
				)
			default:
			}

			select {
			case ch <- env:
			default:
			}
		}
	}
}

// Subscribers reports the number of registered subscribers.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// Shutdown closes all subscriber queues. Further Publish calls are ignored
// and further Subscribe calls return a closed queue.
func (b *Bus) Shutdown(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}

	return nil
}

// Only filters a subscriber queue down to the changes of one entity type.
// The returned channel closes when the source closes or ctx is done.
func Only[E any](ctx context.Context, in <-chan Envelope) <-chan Change[E] {
	out := make(chan Change[E])

	go func() {
		defer close(out)

		for {
			select {
			case env, ok := <-in:
				if !ok {
					return
				}

				change, ok := env.(Change[E])
				if !ok {
					continue
				}

				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
