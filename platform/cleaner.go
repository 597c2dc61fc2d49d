package platform

import (
	"log/slog"
	"os"
	"sync"
)

// AsyncCleaner deletes temp files through a bounded background queue.
// Deletion is idempotent and at-least-once: duplicate or out-of-order
// requests are harmless, and a full queue drops the request rather than
// blocking the caller.
type AsyncCleaner struct {
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan string
	done   chan struct{}
}

var _ Cleaner = (*AsyncCleaner)(nil)

func NewAsyncCleaner(logger *slog.Logger, depth int) *AsyncCleaner {
	c := &AsyncCleaner{
		logger: logger,
		queue:  make(chan string, depth),
		done:   make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *AsyncCleaner) ScheduleDelete(path string) {
	if path == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Warn("cleanup requested after shutdown, dropping", "path", path)
		return
	}
	select {
	case c.queue <- path:
	default:
		// Queue full. The OS temp dir is the backstop.
		c.logger.Warn("cleanup queue full, dropping", "path", path)
	}
}

func (c *AsyncCleaner) run() {
	for path := range c.queue {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			c.logger.Warn("temp file cleanup failed", "path", path, "err", err)
		}
	}
	close(c.done)
}

// Shutdown stops accepting requests and waits for the queue to drain.
// Safe to call more than once, and requests arriving afterwards are
// dropped rather than panicking.
func (c *AsyncCleaner) Shutdown() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
	c.mu.Unlock()
	<-c.done
}
