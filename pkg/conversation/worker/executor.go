package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"ai-chatbot-be/internal/pkg/logger"
)

var ErrExecutorClosed = errors.New("worker executor is shut down")

// Worker is one unit of background work. Run must not block forever.
type Worker interface {
	Run(ctx context.Context)
}

// Executor starts each worker on its own goroutine and does not wait for it.
// A panicking worker is recovered and logged.
type Executor struct {
	mu     sync.RWMutex
	wg     sync.WaitGroup
	closed bool
	log    logger.ILogger
}

func NewExecutor(log logger.ILogger) *Executor {
	return &Executor{log: log}
}

// Execute starts w. The worker runs on a background context so it outlives
// the request that submitted it.
func (e *Executor) Execute(w Worker) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrExecutorClosed
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("WORKER", "Worker panicked", map[string]interface{}{
					"error": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				})
			}
		}()
		w.Run(context.Background())
	}()
	return nil
}

// Shutdown rejects new work and waits for running workers until ctx ends.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
