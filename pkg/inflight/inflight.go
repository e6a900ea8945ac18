// Package inflight counts background work and lets callers wait for it to
// drain. Unlike sync.WaitGroup, Add may run concurrently with Wait.
package inflight

import (
	"context"
	"sync"
)

// Counter tracks in-flight work. The zero value is ready to use.
type Counter struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

// Add registers one unit of work.
func (c *Counter) Add() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == 0 {
		c.idle = make(chan struct{})
	}
	c.n++
}

// Done marks one unit of work finished.
func (c *Counter) Done() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == 0 {
		panic("inflight: Done without Add")
	}
	c.n--
	if c.n == 0 {
		close(c.idle)
	}
}

// Len returns the number of units in flight.
func (c *Counter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Wait blocks until the counter has been idle at least once since the call,
// or ctx is done.
func (c *Counter) Wait(ctx context.Context) error {
	c.mu.Lock()
	if c.n == 0 {
		c.mu.Unlock()
		return nil
	}
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
