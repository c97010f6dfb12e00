package alb

import (
	"encoding/base64"
	"net"
	"net/http"
	"strings"

	"github.com/aura-studio/offline/charset"
	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
)

// RequestSnapshot captures the raw fields of the most recently dispatched
// request. Concurrent requests overwrite each other; the last write wins.
type RequestSnapshot struct {
	Method  string
	URL     string
	Headers http.Header
	Payload []byte
}

// LastRequest returns the snapshot of the most recently dispatched request,
// or nil before the first one. It exists for debugging and tests.
func (e *Engine) LastRequest() *RequestSnapshot {
	return e.lastRequest.Load()
}

// buildEvent converts the HTTP request into the invocation event defined by
// the balancer contract. Header names are lowercased with the last value
// winning, the payload is carried as text or base64 depending on charset
// detection, and the configured stage prefix is stripped from the path.
func (e *Engine) buildEvent(c *gin.Context, body []byte, route Route, requestID string) events.ALBTargetGroupRequest {
	path := c.Request.URL.Path
	if e.PrependStage {
		path = strings.TrimPrefix(path, "/"+e.Stage)
		if path == "" {
			path = "/"
		}
	}

	headers := make(map[string]string, len(c.Request.Header)+4)
	for key, values := range c.Request.Header {
		headers[strings.ToLower(key)] = values[len(values)-1]
	}
	if _, ok := headers["x-forwarded-for"]; !ok {
		if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil && host != "" {
			headers["x-forwarded-for"] = host
		}
	}
	if _, ok := headers["x-forwarded-port"]; !ok {
		if _, port, err := net.SplitHostPort(e.Address); err == nil {
			headers["x-forwarded-port"] = port
		}
	}
	if _, ok := headers["x-forwarded-proto"]; !ok {
		proto := "http"
		if e.CertFile != "" && e.KeyFile != "" {
			proto = "https"
		}
		headers["x-forwarded-proto"] = proto
	}
	headers["x-amzn-trace-id"] = traceID(requestID)

	query := make(map[string]string, len(c.Request.URL.Query()))
	for key, values := range c.Request.URL.Query() {
		query[key] = values[len(values)-1]
	}

	event := events.ALBTargetGroupRequest{
		HTTPMethod:            c.Request.Method,
		Path:                  path,
		QueryStringParameters: query,
		Headers:               headers,
		RequestContext: events.ALBTargetGroupRequestContext{
			ELB: events.ELBContext{TargetGroupArn: route.TargetGroupArn},
		},
	}

	if len(body) == 0 {
		return event
	}

	detect := e.Detect
	if detect == nil {
		detect = charset.Detect
	}

	name := detect(c.Request.Header, body)
	if name != charset.Binary {
		if text, err := charset.Decode(body, name); err == nil {
			event.Body = text
			return event
		}
	}

	event.Body = base64.StdEncoding.EncodeToString(body)
	event.IsBase64Encoded = true
	return event
}

// traceID synthesizes an X-Amzn-Trace-Id root the way the balancer stamps
// one onto forwarded requests.
func traceID(requestID string) string {
	hex := strings.ReplaceAll(requestID, "-", "")
	if len(hex) < 32 {
		hex += strings.Repeat("0", 32-len(hex))
	}
	return "Root=1-" + hex[:8] + "-" + hex[8:32]
}
