// Package alb emulates how a managed load balancer fronts serverless
// functions: HTTP requests become invocation events, function results
// become HTTP responses, and failures are classified into structured
// error replies.
package alb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/aura-studio/offline/async"
	"github.com/aura-studio/offline/dlq"
	"github.com/aura-studio/offline/runner"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Engine struct {
	*Options
	*gin.Engine
	*runner.Registry

	async       *async.Engine
	relay       *dlq.Relay
	redriver    *dlq.Redriver
	routes      []Route
	lastRequest atomic.Pointer[RequestSnapshot]
}

func NewEngine(opts ...ServeOption) *Engine {
	bag := &serveOptionBag{}
	bag.apply(opts...)

	options := NewOptions(bag.alb...)
	if !options.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	e := &Engine{
		Options:  options,
		Engine:   gin.New(),
		Registry: runner.NewRegistry(bag.runner...),
	}

	e.Use(gin.Recovery())
	if e.CorsMode {
		e.Use(Cors())
	}

	if e.DeadLetterQueue != "" {
		e.relay = dlq.NewRelay(e.DeadLetterQueue, e.SQSClient)
		e.redriver = dlq.NewRedriver(e.DeadLetterQueue, e.SQSClient, e.redriveInvoke)
		if e.Options.Redrive {
			e.redriver.Start()
		}
	}
	e.async = async.NewEngine(e.Registry, e.relay, bag.async...)

	e.InstallHandlers()
	e.InstallRoutes()

	return e
}

// InstallRoutes registers every trigger the options declare.
func (e *Engine) InstallRoutes() {
	for _, fn := range e.Options.Functions {
		for _, trigger := range fn.Triggers {
			e.RegisterRoute(fn.Key, trigger)
		}
	}
}

// PrintRoutes logs the served URL of every route next to its invocation
// endpoint, one pair per trigger.
func (e *Engine) PrintRoutes() {
	for _, r := range e.routes {
		logrus.Infof("alb: %s %s%s (function: %s)", r.Method, r.BaseURL, r.GinPath, r.FunctionKey)
		logrus.Infof("alb: invoke %s%s", r.BaseURL, r.InvocationPath)
	}
}

// Redrive replays one batch of dead-letter records through the registered
// functions, reporting how many replayed cleanly.
func (e *Engine) Redrive(ctx context.Context) (int, error) {
	if e.redriver == nil {
		return 0, errors.New("alb: no dead-letter queue configured")
	}
	return e.redriver.RedriveOnce(ctx)
}

func (e *Engine) redriveInvoke(ctx context.Context, functionKey string, event any) error {
	fn := e.Registry.Get(functionKey)
	if fn == nil {
		return fmt.Errorf("alb: no function registered for key %q", functionKey)
	}
	fn.SetEvent(event)
	_, err := fn.Run(ctx)
	return err
}

// Close stops background work owned by the engine: the async pool drains,
// the redriver and plugin watcher halt.
func (e *Engine) Close() error {
	e.async.Stop()
	if e.redriver != nil {
		e.redriver.Stop()
	}
	return e.Registry.Close()
}
