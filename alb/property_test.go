package alb_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/aura-studio/offline/alb"
	"github.com/aura-studio/offline/runner"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genLowercaseAlphaNum(minLen, maxLen int) gopter.Gen {
	chars := "abcdefghijklmnopqrstuvwxyz0123456789"
	firstChars := "abcdefghijklmnopqrstuvwxyz"

	return gen.IntRange(minLen, maxLen).FlatMap(func(length interface{}) gopter.Gen {
		l := length.(int)
		return gopter.CombineGens(
			gen.IntRange(0, len(firstChars)-1),
			gen.SliceOfN(l-1, gen.IntRange(0, len(chars)-1)),
		).Map(func(values []any) string {
			firstIdx := values[0].(int)
			restIdxs := values[1].([]int)
			result := string(firstChars[firstIdx])
			for _, idx := range restIdxs {
				result += string(chars[idx])
			}
			return result
		})
	}, reflect.TypeOf(""))
}

// TestStringResultQuotingProperty checks that any bare string result is
// relayed as exactly its JSON string literal.
func TestStringResultQuotingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(42)

	properties := gopter.NewProperties(parameters)

	properties.Property("bare string results arrive JSON-quoted", prop.ForAll(
		func(s string) bool {
			e := alb.NewEngine(
				alb.WithFunction("fn", alb.Trigger{Method: "GET", Path: "/fn"}),
				runner.WithFunction("fn", func(ctx context.Context, event any) (any, error) {
					return s, nil
				}),
			)
			defer e.Close()

			w := do(e, http.MethodGet, "/dev/fn", nil, nil)
			if w.Code != http.StatusOK {
				t.Logf("status = %d for %q", w.Code, s)
				return false
			}

			want, err := json.Marshal(s)
			if err != nil {
				t.Logf("marshal %q: %v", s, err)
				return false
			}
			if !bytes.Equal(w.Body.Bytes(), want) {
				t.Logf("body = %q, want %q", w.Body.String(), want)
				return false
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestBase64RoundTripProperty checks that any byte payload a function
// returns base64-encoded arrives as the original bytes.
func TestBase64RoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(42)

	properties := gopter.NewProperties(parameters)

	properties.Property("base64 results decode to the original bytes", prop.ForAll(
		func(payload []byte) bool {
			e := alb.NewEngine(
				alb.WithFunction("fn", alb.Trigger{Method: "GET", Path: "/fn"}),
				runner.WithFunction("fn", func(ctx context.Context, event any) (any, error) {
					return map[string]any{
						"statusCode":      200,
						"body":            base64.StdEncoding.EncodeToString(payload),
						"isBase64Encoded": true,
					}, nil
				}),
			)
			defer e.Close()

			w := do(e, http.MethodGet, "/dev/fn", nil, nil)
			if w.Code != http.StatusOK {
				t.Logf("status = %d", w.Code)
				return false
			}
			if !bytes.Equal(w.Body.Bytes(), payload) {
				t.Logf("body = %x, want %x", w.Body.Bytes(), payload)
				return false
			}
			return true
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

// TestStatusExtractionProperty checks the bracketed-status contract: an
// in-range [NNN] token names the reply status, anything else maps to 502.
func TestStatusExtractionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(42)

	properties := gopter.NewProperties(parameters)

	failWith := func(message string) *alb.Engine {
		return alb.NewEngine(
			alb.WithFunction("fn", alb.Trigger{Method: "GET", Path: "/fn"}),
			runner.WithFunction("fn", func(ctx context.Context, event any) (any, error) {
				return nil, fmt.Errorf("%s", message)
			}),
		)
	}

	properties.Property("in-range [NNN] tokens name the reply status", prop.ForAll(
		func(msg string, status int) bool {
			e := failWith(fmt.Sprintf("%s [%d]", msg, status))
			defer e.Close()

			w := do(e, http.MethodGet, "/dev/fn", nil, nil)
			if w.Code != status {
				t.Logf("status = %d, want %d", w.Code, status)
				return false
			}
			return true
		},
		genLowercaseAlphaNum(1, 30),
		gen.IntRange(100, 599),
	))

	properties.Property("out-of-range [NNN] tokens map to 502", prop.ForAll(
		func(msg string, status int) bool {
			e := failWith(fmt.Sprintf("%s [%d]", msg, status))
			defer e.Close()

			w := do(e, http.MethodGet, "/dev/fn", nil, nil)
			if w.Code != http.StatusBadGateway {
				t.Logf("status = %d, want 502 for token [%d]", w.Code, status)
				return false
			}
			return true
		},
		genLowercaseAlphaNum(1, 30),
		gen.IntRange(600, 999),
	))

	properties.Property("messages without a token map to 502", prop.ForAll(
		func(msg string) bool {
			e := failWith(msg)
			defer e.Close()

			w := do(e, http.MethodGet, "/dev/fn", nil, nil)
			if w.Code != http.StatusBadGateway {
				t.Logf("status = %d, want 502 for %q", w.Code, msg)
				return false
			}
			return true
		},
		genLowercaseAlphaNum(1, 50),
	))

	properties.TestingRun(t)
}

// TestTriggerRegistrationProperty checks method normalization: any casing
// registers the upper-cased method, empty means ANY, HEAD never registers.
func TestTriggerRegistrationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(42)

	properties := gopter.NewProperties(parameters)

	properties.Property("trigger methods normalize and HEAD is skipped", prop.ForAll(
		func(method, key, seg string) bool {
			e := alb.NewEngine(
				alb.WithFunction(key, alb.Trigger{Method: method, Path: "/" + seg}),
				runner.WithFunction(key, func(ctx context.Context, event any) (any, error) {
					return "ok", nil
				}),
			)
			defer e.Close()

			want := strings.ToUpper(strings.TrimSpace(method))
			if want == "" {
				want = "ANY"
			}

			routes := e.RouteTable()
			if want == "HEAD" {
				if len(routes) != 0 {
					t.Logf("HEAD trigger registered %d routes", len(routes))
					return false
				}
				return true
			}

			if len(routes) != 1 {
				t.Logf("routes = %d, want 1 for method %q", len(routes), method)
				return false
			}
			r := routes[0]
			if r.Method != want {
				t.Logf("Method = %q, want %q", r.Method, want)
				return false
			}
			if r.GinPath != "/dev/"+seg {
				t.Logf("GinPath = %q", r.GinPath)
				return false
			}
			if r.InvocationPath != "/2015-03-31/functions/"+key+"/invocations" {
				t.Logf("InvocationPath = %q", r.InvocationPath)
				return false
			}
			return true
		},
		gen.OneConstOf("GET", "get", "Get", "POST", "post", "PUT", "DELETE", "PATCH", "ANY", "any", "", "HEAD", "head"),
		genLowercaseAlphaNum(1, 12),
		genLowercaseAlphaNum(1, 12),
	))

	properties.TestingRun(t)
}

// TestStageStrippingProperty checks that the configured stage prefix is
// stripped from every event path, whatever the stage and route.
func TestStageStrippingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(42)

	properties := gopter.NewProperties(parameters)

	properties.Property("event paths never carry the stage prefix", prop.ForAll(
		func(stage, seg string) bool {
			var gotPath string
			e := alb.NewEngine(
				alb.WithStage(stage),
				alb.WithFunction("fn", alb.Trigger{Method: "GET", Path: "/" + seg}),
				runner.WithFunction("fn", func(ctx context.Context, event any) (any, error) {
					gotPath = albEvent(t, event).Path
					return "ok", nil
				}),
			)
			defer e.Close()

			w := do(e, http.MethodGet, "/"+stage+"/"+seg, nil, nil)
			if w.Code != http.StatusOK {
				t.Logf("status = %d for stage %q", w.Code, stage)
				return false
			}
			if gotPath != "/"+seg {
				t.Logf("event path = %q, want %q", gotPath, "/"+seg)
				return false
			}
			return true
		},
		genLowercaseAlphaNum(1, 10),
		genLowercaseAlphaNum(1, 10),
	))

	properties.TestingRun(t)
}
