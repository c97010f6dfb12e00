package alb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aura-studio/offline/async"
	"github.com/aura-studio/offline/runner"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// eventContext carries the marshaled invocation event through the request
// context so failure paths can attach it to dead-letter records.
const eventContext = "event"

func (e *Engine) InstallHandlers() {
	e.HandleMethodNotAllowed = true

	e.GET("/health-check", e.OK)
	e.HEAD("/health-check", e.OK)
	e.POST("/2015-03-31/functions/:function/invocations", e.Invoke)
	e.NoRoute(e.PageNotFound)
	e.NoMethod(e.MethodNotAllowed)
}

// dispatch returns the handler that carries one route end to end: payload
// read, snapshot, event build, invocation, reply translation.
func (e *Engine) dispatch(route Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := e.readBody(c)
		if !ok {
			return
		}

		e.lastRequest.Store(&RequestSnapshot{
			Method:  c.Request.Method,
			URL:     c.Request.URL.String(),
			Headers: c.Request.Header.Clone(),
			Payload: body,
		})

		requestID := uuid.NewString()
		event := e.buildEvent(c, body, route, requestID)
		if e.relay != nil {
			if raw, err := json.Marshal(event); err == nil {
				c.Set(eventContext, json.RawMessage(raw))
			}
		}

		fn := e.Registry.Get(route.FunctionKey)
		if fn == nil {
			logrus.Fatalf("alb: no function registered for key %q (route %s %s)", route.FunctionKey, route.Method, route.Path)
			return
		}

		if e.Verbose {
			logrus.Infof("alb: %s %s -> %s", c.Request.Method, c.Request.URL.Path, route.InvocationPath)
		}

		fn.SetEvent(event)
		result, err := fn.Run(c.Request.Context())
		if err != nil {
			var le *runner.LoadError
			if errors.As(err, &le) {
				message := fmt.Sprintf("Error while loading %s", route.FunctionKey)
				e.replyError(c, route, requestID, http.StatusBadGateway, message, runner.ErrorType(le), nil)
				return
			}
			e.replyFailure(c, route, requestID, err)
			return
		}

		e.replyResult(c, route, requestID, result)
	}
}

// readBody drains the request payload under the balancer's 10 MiB ceiling.
// GET and HEAD requests carry no payload into the event.
func (e *Engine) readBody(c *gin.Context) ([]byte, bool) {
	if c.Request.Body == nil || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		return nil, true
	}

	limited := http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := io.ReadAll(limited)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			c.String(http.StatusRequestEntityTooLarge, "request entity too large")
		} else {
			c.String(http.StatusBadRequest, "read payload: %v", err)
		}
		c.Abort()
		return nil, false
	}
	return body, true
}

// Invoke serves the raw invocation endpoint: POST a JSON event, receive the
// function result. The X-Amz-Invocation-Type header selects the mode the way
// the cloud invoke API does: RequestResponse waits for the result, Event
// queues the invocation and replies 202, DryRun validates and replies 204.
// A function error is flagged through the X-Amz-Function-Error header.
func (e *Engine) Invoke(c *gin.Context) {
	key := c.Param("function")
	fn := e.Registry.Get(key)
	if fn == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"Type":    "User",
			"message": fmt.Sprintf("Function not found: %s", key),
		})
		c.Abort()
		return
	}

	body, ok := e.readBody(c)
	if !ok {
		return
	}

	var event any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &event); err != nil {
			c.String(http.StatusBadRequest, "invalid payload: %v", err)
			c.Abort()
			return
		}
	}

	requestID := uuid.NewString()
	c.Header("X-Amzn-Requestid", requestID)

	switch invocationType := c.GetHeader("X-Amz-Invocation-Type"); invocationType {
	case "", "RequestResponse":
	case "Event":
		inv := async.Invocation{FunctionKey: key, RequestID: requestID, Event: event}
		if err := e.async.Enqueue(inv); err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, async.ErrQueueFull) {
				status = http.StatusTooManyRequests
			}
			c.JSON(status, gin.H{"Type": "Server", "message": err.Error()})
			c.Abort()
			return
		}
		c.Status(http.StatusAccepted)
		c.Abort()
		return
	case "DryRun":
		c.Status(http.StatusNoContent)
		c.Abort()
		return
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"Type":    "User",
			"message": fmt.Sprintf("Unsupported invocation type: %s", invocationType),
		})
		c.Abort()
		return
	}

	fn.SetEvent(event)
	result, err := fn.Run(c.Request.Context())
	if err != nil {
		kind := runner.ErrorType(err)
		var trace []string
		var ie *runner.InvocationError
		if errors.As(err, &ie) {
			kind = runner.ErrorType(ie.Value)
			trace = truncateStack(ie.Stack)
		}
		if e.HideStackTraces {
			trace = nil
		}

		c.Header("X-Amz-Function-Error", "Unhandled")
		c.JSON(http.StatusOK, errorResponse{
			ErrorMessage: err.Error(),
			ErrorType:    kind,
			StackTrace:   trace,
			OfflineInfo:  offlineNote,
		})
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, result)
	c.Abort()
}

func (e *Engine) OK(c *gin.Context) {
	c.String(http.StatusOK, "OK")
	c.Abort()
}

func (e *Engine) PageNotFound(c *gin.Context) {
	c.String(http.StatusNotFound, "404 page not found")
	c.Abort()
}

func (e *Engine) MethodNotAllowed(c *gin.Context) {
	c.String(http.StatusMethodNotAllowed, "405 method not allowed")
	c.Abort()
}
