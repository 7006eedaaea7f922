package devicemsg

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
)

// DefaultQueueSize is the number of pending messages a Queue buffers.
const DefaultQueueSize = 64

// Queue is an asynchronous Sender. Send enqueues without blocking and Run
// drains the queue onto the underlying stream in order.
type Queue struct {
	writer  *Writer
	pending chan Message
	logger  *slog.Logger
	dropped atomic.Uint64
}

// NewQueue creates a Queue that writes to w. A size <= 0 selects
// DefaultQueueSize and a nil logger selects slog.Default().
func NewQueue(w io.Writer, size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		writer:  NewWriter(w),
		pending: make(chan Message, size),
		logger:  logger,
	}
}

// Send enqueues msg. If the queue is full the message is dropped.
func (q *Queue) Send(msg Message) {
	select {
	case q.pending <- msg:
	default:
		q.dropped.Add(1)
		q.logger.Warn("device message queue full, dropping message", "type", msg.Type().String())
	}
}

// Dropped returns the number of messages dropped because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Run writes queued messages until ctx is cancelled or the stream fails.
// Messages that cannot be serialized are logged and skipped.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-q.pending:
			if err := q.writer.Write(msg); err != nil {
				if errors.Is(err, ErrUnknownType) || errors.Is(err, ErrPayloadTooLarge) {
					q.logger.Warn("skipping unserializable device message", "type", msg.Type().String(), "error", err)
					continue
				}
				return err
			}
		}
	}
}

// Flush writes every message still queued and returns without waiting for
// more. Call it after Run has returned.
func (q *Queue) Flush() error {
	for {
		select {
		case msg := <-q.pending:
			if err := q.writer.Write(msg); err != nil {
				if errors.Is(err, ErrUnknownType) || errors.Is(err, ErrPayloadTooLarge) {
					continue
				}
				return err
			}
		default:
			return nil
		}
	}
}
