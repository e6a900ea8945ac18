package inflight

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReturnsWhenIdle(t *testing.T) {
	var c Counter
	require.NoError(t, c.Wait(context.Background()))

	c.Add()
	c.Add()
	done := make(chan error, 1)
	go func() { done <- c.Wait(context.Background()) }()

	c.Done()
	select {
	case <-done:
		t.Fatal("Wait returned with work in flight")
	case <-time.After(20 * time.Millisecond):
	}
	c.Done()
	require.NoError(t, <-done)
	assert.Equal(t, 0, c.Len())
}

func TestWaitHonoursContext(t *testing.T) {
	var c Counter
	c.Add()
	defer c.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded)
}

func TestAddConcurrentWithWait(t *testing.T) {
	var c Counter
	ctx := context.Background()
	stop := make(chan struct{})

	var waiters sync.WaitGroup
	for range 4 {
		waiters.Add(1)
		go func() {
			defer waiters.Done()
			for {
				select {
				case <-stop:
					return
				default:
					assert.NoError(t, c.Wait(ctx))
				}
			}
		}()
	}

	var work sync.WaitGroup
	for range 5000 {
		c.Add()
		work.Add(1)
		go func() {
			defer work.Done()
			c.Done()
		}()
	}
	work.Wait()
	close(stop)
	waiters.Wait()
	assert.Equal(t, 0, c.Len())
}

func TestDoneWithoutAddPanics(t *testing.T) {
	var c Counter
	assert.Panics(t, c.Done)
}
