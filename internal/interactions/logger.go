// Package interactions records answered questions to a storage sink in the
// background so that sink latency never delays a reply.
package interactions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"faq-chatter/internal/storage"
)

const defaultWriteTimeout = 15 * time.Second

type Logger struct {
	sink    storage.Sink
	log     *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan storage.Record
	done   chan struct{}
}

// New starts the background writer. queueSize bounds the number of pending
// records; Log drops records once the queue is full.
func New(sink storage.Sink, log *zap.Logger, queueSize int) *Logger {
	if queueSize <= 0 {
		queueSize = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	l := &Logger{
		sink:    sink,
		log:     log,
		timeout: defaultWriteTimeout,
		queue:   make(chan storage.Record, queueSize),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Log enqueues rec without blocking. It reports whether the record was
// accepted.
func (l *Logger) Log(rec storage.Record) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return false
	}
	select {
	case l.queue <- rec:
		return true
	default:
		l.log.Warn("⚠️ interaction log queue full, dropping record",
			zap.String("kind", rec.Kind.String()))
		return false
	}
}

// Write performs one synchronous attempt: append, and when the destination
// is missing, initialize it and append exactly once more.
func (l *Logger) Write(ctx context.Context, rec storage.Record) error {
	err := l.sink.Append(ctx, rec)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("append: %w", err)
	}
	l.log.Info("📄 log destination missing, initializing")
	if err := l.sink.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := l.sink.Append(ctx, rec); err != nil {
		return fmt.Errorf("retry append: %w", err)
	}
	return nil
}

// Close stops accepting records and waits for the queue to drain or ctx to
// expire.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Logger) run() {
	defer close(l.done)
	for rec := range l.queue {
		l.write(rec)
	}
}

func (l *Logger) write(rec storage.Record) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("💥 panic while writing interaction log", zap.Any("panic", r))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := l.Write(ctx, rec); err != nil {
		l.log.Warn("❌ giving up on interaction log record",
			zap.String("kind", rec.Kind.String()),
			zap.Error(err))
	}
}
