package alb

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aura-studio/offline/runner"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	contentTypeJSON   = "application/json"
	contentTypeBinary = "application/octet-stream"
)

// stringifiedBodyMessage is the fixed reply for results whose body is not a
// string: the balancer contract requires functions to stringify the body
// themselves.
const stringifiedBodyMessage = `According to the ALB specification, the body content must be stringified. Check your function behavior and make sure the "body" attribute is a serialized string when returning.`

// replyResult translates a function result back into an HTTP response.
// A bare string is relayed as its JSON string literal; anything else is
// serialized and probed for the balancer response contract.
func (e *Engine) replyResult(c *gin.Context, route Route, requestID string, result any) {
	if s, ok := result.(string); ok {
		quoted, _ := json.Marshal(s)
		e.logResult(http.StatusOK, quoted)
		c.Data(http.StatusOK, contentTypeJSON, quoted)
		c.Abort()
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		message := fmt.Sprintf("result of %s is not serializable: %v", route.FunctionKey, err)
		e.replyError(c, route, requestID, http.StatusBadGateway, message, runner.ErrorType(err), nil)
		return
	}

	r := gjson.ParseBytes(raw)

	status := http.StatusOK
	if sc := r.Get("statusCode"); sc.Exists() {
		if v := int(sc.Int()); v >= 100 && v <= 599 {
			status = v
		}
	}

	// Single-value headers first, then multi-value ones replacing any
	// same-named entry, so the richer form wins when both are present.
	r.Get("headers").ForEach(func(key, value gjson.Result) bool {
		c.Header(key.String(), value.String())
		return true
	})
	r.Get("multiValueHeaders").ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		c.Writer.Header().Del(name)
		value.ForEach(func(_, v gjson.Result) bool {
			c.Writer.Header().Add(name, v.String())
			return true
		})
		return true
	})

	body := r.Get("body")

	if !body.Exists() || body.Type == gjson.Null {
		e.logResult(status, raw)
		c.Data(status, contentTypeJSON, nil)
		c.Abort()
		return
	}

	if body.Type != gjson.String {
		e.replyError(c, route, requestID, http.StatusBadGateway, stringifiedBodyMessage, "SerializationError", nil)
		return
	}

	if r.Get("isBase64Encoded").Bool() {
		bin, err := base64.StdEncoding.DecodeString(body.String())
		if err != nil {
			e.replyFailure(c, route, requestID, err)
			return
		}
		e.logResult(status, raw)
		c.Data(status, contentTypeBinary, bin)
		c.Abort()
		return
	}

	e.logResult(status, raw)
	c.Data(status, contentTypeJSON, []byte(body.String()))
	c.Abort()
}

// logResult reports the translated response when verbose output is on.
// Diagnostics never fail a reply, so nothing here returns an error.
func (e *Engine) logResult(status int, rendered []byte) {
	if !e.Verbose {
		return
	}
	logrus.Infof("alb: respond %d %s", status, rendered)
}
