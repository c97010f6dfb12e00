package alb

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/aura-studio/offline/dlq"
	"github.com/aura-studio/offline/runner"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// offlineNote rides along in every structured error body so users can tell
// an emulator fault from a function fault.
const offlineNote = "If you believe this is an issue with the emulator, please submit it at https://github.com/aura-studio/offline/issues"

var statusPattern = regexp.MustCompile(`\[(\d{3})\]`)

// errorResponse is the structured body relayed to HTTP clients when an
// invocation fails.
type errorResponse struct {
	ErrorMessage string   `json:"errorMessage"`
	ErrorType    string   `json:"errorType"`
	StackTrace   []string `json:"stackTrace"`
	OfflineInfo  string   `json:"offlineInfo"`
}

// replyFailure classifies an invocation failure and relays it. A bracketed
// [NNN] token in the failure message names the reply status; everything
// else is reported as a 502.
func (e *Engine) replyFailure(c *gin.Context, route Route, requestID string, err error) {
	kind := runner.ErrorType(err)
	var trace []string

	var ie *runner.InvocationError
	if errors.As(err, &ie) {
		kind = runner.ErrorType(ie.Value)
		trace = truncateStack(ie.Stack)
	}

	message := err.Error()
	e.replyError(c, route, requestID, statusFromMessage(message), message, kind, trace)
}

// replyError renders the structured error body shared by every failure path
// and mirrors the failure to the dead-letter relay when one is wired.
func (e *Engine) replyError(c *gin.Context, route Route, requestID string, status int, message, kind string, trace []string) {
	if e.HideStackTraces {
		trace = nil
	}

	logrus.Warnf("alb: %s (function: %s)", message, route.FunctionKey)
	if len(trace) > 0 {
		logrus.Error(strings.Join(trace, "\n"))
	}

	if e.relay != nil {
		rec := dlq.Record{
			FunctionKey:  route.FunctionKey,
			RequestID:    requestID,
			Method:       c.Request.Method,
			Path:         c.Request.URL.Path,
			StatusCode:   status,
			ErrorMessage: message,
			ErrorType:    kind,
		}
		if v, ok := c.Get(eventContext); ok {
			if raw, ok := v.(json.RawMessage); ok {
				rec.Event = raw
			}
		}
		e.relay.SendAsync(rec)
	}

	c.JSON(status, errorResponse{
		ErrorMessage: message,
		ErrorType:    kind,
		StackTrace:   trace,
		OfflineInfo:  offlineNote,
	})
	c.Abort()
}

// statusFromMessage extracts a bracketed three-digit status from a failure
// message. Messages without a usable status map to 502.
func statusFromMessage(message string) int {
	m := statusPattern.FindStringSubmatch(message)
	if m == nil {
		return http.StatusBadGateway
	}
	status, _ := strconv.Atoi(m[1])
	if status < 100 || status > 599 {
		return http.StatusBadGateway
	}
	return status
}

// truncateStack trims each line and cuts the trace just before the dispatch
// boundary so only handler frames are relayed.
func truncateStack(stack []string) []string {
	for i, line := range stack {
		if strings.TrimSpace(line) == runner.StackBoundary {
			stack = stack[:i]
			break
		}
	}

	out := make([]string, 0, len(stack))
	for _, line := range stack {
		out = append(out, strings.TrimSpace(line))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
