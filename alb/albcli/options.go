package albcli

import (
	"net/http"
	"time"

	"github.com/mohae/deepcopy"
)

// HTTPClient is the transport the client sends requests through.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	HTTPClient     HTTPClient
	BaseURL        string
	DefaultTimeout time.Duration
	Headers        map[string]string
}

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

var defaultOptions = &Options{
	HTTPClient:     nil,
	BaseURL:        "http://localhost:3000",
	DefaultTimeout: 30 * time.Second,
	Headers:        map[string]string{},
}

func NewOptions(opts ...Option) *Options {
	o := deepcopy.Copy(defaultOptions).(*Options)
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(o)
		}
	}
	return o
}

func WithHTTPClient(client HTTPClient) Option {
	return OptionFunc(func(o *Options) {
		o.HTTPClient = client
	})
}

func WithBaseURL(url string) Option {
	return OptionFunc(func(o *Options) {
		o.BaseURL = url
	})
}

func WithDefaultTimeout(timeout time.Duration) Option {
	return OptionFunc(func(o *Options) {
		o.DefaultTimeout = timeout
	})
}

func WithHeader(key, value string) Option {
	return OptionFunc(func(o *Options) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	})
}
