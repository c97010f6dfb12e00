package alb

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes is the request payload ceiling the managed balancer applies
// before invoking a function.
const maxBodyBytes = 10 << 20

// anyMethod marks a trigger that matches every HTTP method.
const anyMethod = "ANY"

// Route is one registered trigger, kept for diagnostics and event building.
type Route struct {
	Method         string
	Path           string
	GinPath        string
	FunctionKey    string
	BaseURL        string
	TargetGroupArn string
	InvocationPath string
}

// RegisterRoute binds a trigger to a function key. HEAD triggers are
// skipped with a notice: the router already serves HEAD through the GET
// binding, so a separate registration would collide with it. Duplicate
// (method, path) pairs are a configuration bug and abort startup.
func (e *Engine) RegisterRoute(functionKey string, trigger Trigger) {
	method := strings.ToUpper(strings.TrimSpace(trigger.Method))
	if method == "" {
		method = anyMethod
	}
	if method == http.MethodHead {
		logrus.Warnf("alb: HEAD trigger %s skipped for %s, GET serves HEAD requests", trigger.Path, functionKey)
		return
	}

	ginPath := convertPath(trigger.Path)
	registeredPath := ginPath
	if e.PrependStage {
		registeredPath = "/" + e.Stage + ginPath
	}

	route := Route{
		Method:         method,
		Path:           trigger.Path,
		GinPath:        registeredPath,
		FunctionKey:    functionKey,
		BaseURL:        e.baseURL(),
		TargetGroupArn: targetGroupArn(functionKey),
		InvocationPath: fmt.Sprintf("/2015-03-31/functions/%s/invocations", functionKey),
	}

	handler := e.dispatch(route)
	switch method {
	case anyMethod:
		e.Any(registeredPath, handler)
	case http.MethodGet:
		e.Handle(http.MethodGet, registeredPath, handler)
		e.Handle(http.MethodHead, registeredPath, handler)
	default:
		e.Handle(method, registeredPath, handler)
	}

	e.routes = append(e.routes, route)
}

// RouteTable returns the registered routes in registration order.
func (e *Engine) RouteTable() []Route {
	routes := make([]Route, len(e.routes))
	copy(routes, e.routes)
	return routes
}

// convertPath rewrites balancer-style path placeholders ({id}, {proxy+})
// into router parameters (:id, *proxy).
func convertPath(path string) string {
	if path == "" {
		return "/"
	}

	segments := strings.Split(path, "/")
	for i, s := range segments {
		switch {
		case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "+}"):
			segments[i] = "*" + strings.TrimSuffix(strings.TrimPrefix(s, "{"), "+}")
		case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
			segments[i] = ":" + strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
		case s == "*":
			segments[i] = "*proxy"
		}
	}

	joined := strings.Join(segments, "/")
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return joined
}

func (e *Engine) baseURL() string {
	scheme := "http"
	if e.CertFile != "" && e.KeyFile != "" {
		scheme = "https"
	}

	host, port, err := net.SplitHostPort(e.Address)
	if err != nil {
		return fmt.Sprintf("%s://localhost%s", scheme, e.Address)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("%s://%s:%s", scheme, host, port)
}

func targetGroupArn(functionKey string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return fmt.Sprintf("arn:aws:elasticloadbalancing:us-east-1:000000000000:targetgroup/%s/%s", functionKey, suffix)
}
