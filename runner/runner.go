package runner

import (
	"context"
	"sort"
	"sync"
)

// HandlerFunc is the native shape of a function: it receives the invocation
// event and returns a JSON-serializable result.
type HandlerFunc func(ctx context.Context, event any) (any, error)

// Function is a single invocable unit. SetEvent stores the event that the
// next Run call passes to the handler.
type Function interface {
	SetEvent(event any)
	Run(ctx context.Context) (any, error)
}

// Provider resolves function keys to invocable units. A nil return means
// nothing is registered under the key.
type Provider interface {
	Get(key string) Function
}

// Registry holds the functions the process can invoke, whatever their
// origin: in-process handlers, plugin artifacts, warehouse tunnels.
type Registry struct {
	*Options

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	watcher  *pluginWatcher
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		Options:  NewOptions(opts...),
		handlers: map[string]HandlerFunc{},
	}

	r.InstallFunctions()

	return r
}

// InstallFunctions registers everything the options declare: in-process
// handlers first, then warehouse tunnels, then the plugin directory.
func (r *Registry) InstallFunctions() {
	for _, f := range r.StaticFunctions {
		r.Register(f.Key, f.Handler)
	}

	r.installTunnels()

	if r.PluginDir != "" {
		r.scanPlugins()
		if r.WatchPlugins {
			r.watchPlugins()
		}
	}
}

func (r *Registry) Register(key string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = handler
}

func (r *Registry) Deregister(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, key)
}

func (r *Registry) Get(key string) Function {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[key]
	if !ok {
		return nil
	}
	return &unit{key: key, handler: handler}
}

// Keys returns the registered function keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.handlers))
	for key := range r.handlers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Close stops the plugin watcher if one is running.
func (r *Registry) Close() error {
	if r.watcher == nil {
		return nil
	}
	return r.watcher.close()
}

// unit is one prepared invocation. It is not safe for concurrent use;
// Get hands out a fresh unit per call.
type unit struct {
	key     string
	handler HandlerFunc
	event   any
}

func (u *unit) SetEvent(event any) { u.event = event }

// Run executes the handler with the stored event. A panic inside the
// handler is recovered and returned as an *InvocationError carrying the
// stack above the recovery point.
func (u *unit) Run(ctx context.Context) (result any, err error) {
	base := stackDepth()
	defer func() {
		if v := recover(); v != nil {
			result = nil
			err = newInvocationError(v, captureStack(base))
		}
	}()
	return u.handler(ctx, u.event)
}
