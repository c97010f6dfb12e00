// Package async executes event invocations in the background: accepted
// immediately, retried on failure, dead-lettered when retries run out.
package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aura-studio/offline/dlq"
	"github.com/aura-studio/offline/runner"
	"github.com/sirupsen/logrus"
)

var (
	ErrStopped   = errors.New("async: engine is stopped")
	ErrQueueFull = errors.New("async: queue is full")
)

// Invocation is one queued event invocation.
type Invocation struct {
	FunctionKey string
	RequestID   string
	Event       any
}

// Engine runs queued invocations on a fixed pool of workers. A failed
// invocation is retried MaxRetries times with RetryDelay between attempts;
// when the attempts run out the invocation goes to the dead-letter relay,
// or is dropped with an error log when no relay is wired.
type Engine struct {
	*Options

	provider runner.Provider
	relay    *dlq.Relay

	queue   chan Invocation
	running atomic.Int32
	mu      sync.RWMutex
	wg      sync.WaitGroup
	once    sync.Once
}

func NewEngine(provider runner.Provider, relay *dlq.Relay, opts ...Option) *Engine {
	e := &Engine{
		Options:  NewOptions(opts...),
		provider: provider,
		relay:    relay,
	}
	e.queue = make(chan Invocation, e.QueueSize)
	e.running.Store(1)

	for i := 0; i < e.Workers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for inv := range e.queue {
				e.process(inv)
			}
		}()
	}

	return e
}

// Enqueue accepts an invocation for background execution. It never blocks:
// a stopped engine reports ErrStopped, a saturated queue ErrQueueFull.
func (e *Engine) Enqueue(inv Invocation) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.running.Load() == 0 {
		return ErrStopped
	}

	select {
	case e.queue <- inv:
		return nil
	default:
		return ErrQueueFull
	}
}

// IsRunning reports whether the engine accepts new invocations.
func (e *Engine) IsRunning() bool {
	return e.running.Load() == 1
}

// Stop rejects new invocations, then drains the queue and waits for
// in-flight work to finish.
func (e *Engine) Stop() {
	e.once.Do(func() {
		e.mu.Lock()
		e.running.Store(0)
		close(e.queue)
		e.mu.Unlock()
		e.wg.Wait()
	})
}

func (e *Engine) process(inv Invocation) {
	attempts := 1 + e.MaxRetries

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			time.Sleep(e.RetryDelay)
		}

		if err = e.invoke(inv); err == nil {
			if e.Verbose {
				logrus.Infof("async: %s done (function: %s)", inv.RequestID, inv.FunctionKey)
			}
			return
		}

		logrus.Warnf("async: %s attempt %d/%d (function: %s): %v",
			inv.RequestID, attempt, attempts, inv.FunctionKey, err)
	}

	e.deadLetter(inv, err)
}

func (e *Engine) invoke(inv Invocation) error {
	fn := e.provider.Get(inv.FunctionKey)
	if fn == nil {
		return fmt.Errorf("async: no function registered for key %q", inv.FunctionKey)
	}

	fn.SetEvent(inv.Event)
	_, err := fn.Run(context.Background())
	return err
}

func (e *Engine) deadLetter(inv Invocation, err error) {
	if e.relay == nil {
		logrus.Errorf("async: drop %s after %d attempts (function: %s): %v",
			inv.RequestID, 1+e.MaxRetries, inv.FunctionKey, err)
		return
	}

	kind := runner.ErrorType(err)
	var ie *runner.InvocationError
	if errors.As(err, &ie) {
		kind = runner.ErrorType(ie.Value)
	}

	rec := dlq.Record{
		FunctionKey:  inv.FunctionKey,
		RequestID:    inv.RequestID,
		ErrorMessage: err.Error(),
		ErrorType:    kind,
	}
	if raw, jerr := json.Marshal(inv.Event); jerr == nil {
		rec.Event = raw
	}

	e.relay.SendAsync(rec)
}
