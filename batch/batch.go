// Package batch coalesces stream values client-side so high-frequency
// producers post fewer, larger Data messages.
//
// A Batcher buffers records per stream and flushes them through a
// single SendValues call when the buffered record count reaches
// MaxBatchSize or on every FlushInterval tick. It is not a queue:
// nothing is persisted, and a failed flush hands the batch to the
// OnError callback instead of redelivering it.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbaliyan/omf"
)

// ValueSender posts a slice of stream values in one request.
// *omf.Client satisfies this interface.
type ValueSender interface {
	SendValues(ctx context.Context, values []omf.StreamValues) error
}

// Default configuration values.
const (
	DefaultMaxBatchSize  = 1000
	DefaultFlushInterval = 5 * time.Second
	DefaultFlushTimeout  = 30 * time.Second
)

// Config holds batcher configuration.
type Config struct {
	// MaxBatchSize is the buffered record count that triggers a flush
	// (default 1000).
	MaxBatchSize int

	// FlushInterval is how often buffered records are flushed
	// regardless of count (default 5s).
	FlushInterval time.Duration

	// FlushTimeout bounds each background flush (default 30s).
	FlushTimeout time.Duration

	// OnError receives background flush errors. The failed batch is
	// dropped. Default logs via Logger.
	OnError func(error)

	// Logger is used for the default OnError. Default slog.Default().
	Logger *slog.Logger
}

// Batcher buffers stream values and sends them periodically.
// Safe for concurrent use.
type Batcher struct {
	sender ValueSender
	config Config
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string][]map[string]any // records coalesced per stream
	order   []string                    // stream insertion order
	count   int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// flushing prevents size-triggered and interval-triggered flushes
	// from stacking goroutines under load.
	flushing atomic.Bool
}

// New creates a batcher in front of the given sender. Call Start to
// begin interval flushing.
func New(sender ValueSender, config Config) *Batcher {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = DefaultMaxBatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = DefaultFlushTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	b := &Batcher{
		sender:  sender,
		config:  config,
		logger:  logger,
		pending: make(map[string][]map[string]any),
		done:    make(chan struct{}),
	}
	if b.config.OnError == nil {
		b.config.OnError = func(err error) {
			b.logger.Error("batch flush failed", "error", err)
		}
	}
	return b
}

// Start begins the interval flush loop. The context bounds the loop's
// lifetime; Close also stops it.
func (b *Batcher) Start(ctx context.Context) {
	b.ctx, b.cancel = context.WithCancel(ctx)
	go b.flushLoop()
}

// Add buffers value records for a stream. Records for the same stream
// coalesce into a single StreamValues entry per flush. Triggers a
// background flush when the buffered count reaches MaxBatchSize.
func (b *Batcher) Add(v omf.StreamValues) {
	if len(v.Values) == 0 {
		return
	}

	b.mu.Lock()
	if _, ok := b.pending[v.StreamID]; !ok {
		b.order = append(b.order, v.StreamID)
	}
	b.pending[v.StreamID] = append(b.pending[v.StreamID], v.Values...)
	b.count += len(v.Values)
	shouldFlush := b.count >= b.config.MaxBatchSize
	b.mu.Unlock()

	if shouldFlush && b.flushing.CompareAndSwap(false, true) {
		go func() {
			defer b.flushing.Store(false)
			b.flushBackground()
		}()
	}
}

// Flush sends all buffered records immediately and returns the send
// error, if any. The batch is dropped either way.
func (b *Batcher) Flush(ctx context.Context) error {
	values := b.take()
	if len(values) == 0 {
		return nil
	}
	return b.sender.SendValues(ctx, values)
}

// Close stops the flush loop and sends any remaining records using the
// caller's context.
func (b *Batcher) Close(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
		<-b.done
	}
	return b.Flush(ctx)
}

// take drains the buffer, preserving stream insertion order.
func (b *Batcher) take() []omf.StreamValues {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	values := make([]omf.StreamValues, 0, len(b.order))
	for _, id := range b.order {
		values = append(values, omf.StreamValues{StreamID: id, Values: b.pending[id]})
	}
	b.pending = make(map[string][]map[string]any)
	b.order = nil
	b.count = 0
	return values
}

// flushLoop flushes on every interval tick until the context ends.
func (b *Batcher) flushLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			if b.flushing.CompareAndSwap(false, true) {
				b.flushBackground()
				b.flushing.Store(false)
			}
		}
	}
}

// flushBackground flushes with the configured timeout and routes
// errors to the OnError callback.
func (b *Batcher) flushBackground() {
	parent := b.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, b.config.FlushTimeout)
	defer cancel()

	if err := b.Flush(ctx); err != nil {
		b.config.OnError(err)
	}
}
