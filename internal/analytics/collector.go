package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// Publisher ships a batch of events. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Recorder consumes events in process. *Aggregator satisfies it.
type Recorder interface {
	Record(env Envelope)
}

// Collector fans events out to an in-process Recorder immediately and to a
// Publisher in batches, flushed when BatchSize events are buffered or every
// FlushInterval. Either side may be nil. Tracking never blocks the caller:
// when the buffer is full the event is dropped for the publisher.
type Collector struct {
	publisher     Publisher
	local         Recorder
	batchSize     int
	flushInterval time.Duration

	eventCh chan Envelope
	done    chan struct{}
	started atomic.Bool
	once    sync.Once
	logger  *slog.Logger
}

func NewCollector(publisher Publisher, local Recorder, batchSize int, flushInterval time.Duration) *Collector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		local:         local,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		eventCh:       make(chan Envelope, batchSize*10),
		done:          make(chan struct{}),
		logger:        slog.Default().With("component", "analytics-collector"),
	}
}

// Start runs the batching loop until ctx is cancelled or Close is called.
// Buffered events are flushed before it returns.
func (c *Collector) Start(ctx context.Context) {
	if c.publisher == nil || !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.run(ctx)
	c.logger.Info("analytics collector started", "batch_size", c.batchSize, "flush_interval", c.flushInterval)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := c.publisher.PublishBatch(ctx, batch); err != nil {
			c.logger.Error("analytics flush failed", "events", len(batch), "error", err)
		}
		batch = batch[:0]
	}
	final := func() {
		for {
			select {
			case env, ok := <-c.eventCh:
				if !ok {
					flush(context.Background())
					return
				}
				batch = append(batch, kafka.Event{Key: env.key(), Value: env})
			default:
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				flush(flushCtx)
				cancel()
				return
			}
		}
	}

	for {
		select {
		case env, ok := <-c.eventCh:
			if !ok {
				flush(context.Background())
				return
			}
			batch = append(batch, kafka.Event{Key: env.key(), Value: env})
			if len(batch) >= c.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			final()
			return
		}
	}
}

// TrackSearch records a completed query.
func (c *Collector) TrackSearch(ev SearchEvent) {
	c.track(Envelope{Type: EventSearch, Search: &ev})
}

// TrackIndex records an index rebuild attempt.
func (c *Collector) TrackIndex(ev IndexEvent) {
	c.track(Envelope{Type: EventIndexRebuild, Index: &ev})
}

func (c *Collector) track(env Envelope) {
	if c.local != nil {
		c.local.Record(env)
	}
	if c.publisher == nil {
		return
	}
	select {
	case c.eventCh <- env:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "type", env.Type)
	}
}

// Close stops accepting events and waits for the final flush. Track must
// not be called after Close.
func (c *Collector) Close() {
	c.once.Do(func() { close(c.eventCh) })
	if c.started.Load() {
		<-c.done
	}
}
