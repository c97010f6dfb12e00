package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aura-studio/dynamic"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// installTunnels wires the warehouse runtime and registers every declared
// tunnel function. Package resolution is lazy: a missing or broken artifact
// surfaces as a *LoadError when the function runs, not at startup.
func (r *Registry) installTunnels() {
	if len(r.TunnelFunctions) == 0 && len(r.StaticPackages) == 0 {
		return
	}

	dynamic.UseWarehouse(r.LocalWarehouse, r.RemoteWarehouse)

	if r.PackageNamespace != "" {
		dynamic.UseNamespace(r.PackageNamespace)
	}
	if r.PackageDefaultVersion != "" {
		dynamic.UseDefaultVersion(r.PackageDefaultVersion)
	}

	for _, p := range r.StaticPackages {
		dynamic.RegisterPackage(p.Package, p.Version, p.Tunnel)
	}

	for _, f := range r.TunnelFunctions {
		r.Register(f.Key, tunnelHandler(f))
	}
}

// tunnelHandler adapts one warehouse route to a HandlerFunc. The event is
// serialized to JSON and annotated with an __meta__ section naming the
// function; the tunnel's reply is returned as structured data when it
// parses as JSON and as a plain string otherwise.
func tunnelHandler(f *TunnelFunction) HandlerFunc {
	route := f.Route
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}

	return func(ctx context.Context, event any) (any, error) {
		tunnel, err := dynamic.GetPackage(f.Package, f.Version)
		if err != nil {
			return nil, &LoadError{Key: f.Key, Err: err}
		}

		req, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("runner: marshal event for %s: %w", f.Key, err)
		}
		if gjson.ValidBytes(req) && !gjson.GetBytes(req, "__meta__").Exists() {
			req, _ = sjson.SetBytes(req, "__meta__", map[string]any{
				"function": f.Key,
				"package":  f.Package,
				"version":  f.Version,
				"route":    route,
			})
		}

		rsp := tunnel.Invoke(route, string(req))

		if strings.HasPrefix(rsp, "error://") {
			return nil, fmt.Errorf("%s", strings.TrimPrefix(rsp, "error://"))
		}

		if gjson.Valid(rsp) {
			rsp, _ = sjson.Delete(rsp, "__meta__")
			return gjson.Parse(rsp).Value(), nil
		}
		return rsp, nil
	}
}
