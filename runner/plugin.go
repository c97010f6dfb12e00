package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/sirupsen/logrus"
)

// PluginSymbol is the exported symbol looked up in every plugin artifact.
const PluginSymbol = "Handler"

// scanPlugins walks the plugin directory once and registers every .so file
// under its base name. Artifacts that fail to load stay registered and
// report a *LoadError on each invocation, so a broken build is visible to
// callers instead of silently missing.
func (r *Registry) scanPlugins() {
	entries, err := os.ReadDir(r.PluginDir)
	if err != nil {
		logrus.Warnf("runner: scan plugin dir %s: %v", r.PluginDir, err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".so") {
			continue
		}
		r.loadPlugin(filepath.Join(r.PluginDir, entry.Name()))
	}
}

func (r *Registry) loadPlugin(path string) {
	key := strings.TrimSuffix(filepath.Base(path), ".so")

	p, err := plugin.Open(path)
	if err != nil {
		logrus.Warnf("runner: open plugin %s: %v", path, err)
		r.registerLoadFault(key, err)
		return
	}

	sym, err := p.Lookup(PluginSymbol)
	if err != nil {
		logrus.Warnf("runner: plugin %s: %v", path, err)
		r.registerLoadFault(key, err)
		return
	}

	handler, err := asHandler(sym)
	if err != nil {
		logrus.Warnf("runner: plugin %s: %v", path, err)
		r.registerLoadFault(key, err)
		return
	}

	r.Register(key, handler)
	logrus.Infof("runner: plugin %s registered as %s", path, key)
}

// asHandler accepts the symbol shapes a plugin can export: a plain function,
// a HandlerFunc variable, or a pointer to either.
func asHandler(sym plugin.Symbol) (HandlerFunc, error) {
	switch h := sym.(type) {
	case func(context.Context, any) (any, error):
		return h, nil
	case HandlerFunc:
		return h, nil
	case *HandlerFunc:
		return *h, nil
	case *func(context.Context, any) (any, error):
		return *h, nil
	}
	return nil, fmt.Errorf("symbol %s has type %T, not a handler", PluginSymbol, sym)
}

// registerLoadFault keeps a declared key invocable so that the failure is
// reported per call rather than becoming a missing-function fault.
func (r *Registry) registerLoadFault(key string, cause error) {
	r.Register(key, func(context.Context, any) (any, error) {
		return nil, &LoadError{Key: key, Err: cause}
	})
}
