package async

import (
	"time"

	"github.com/mohae/deepcopy"
)

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

type Options struct {
	// Async Options
	Workers    int
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
	Verbose    bool
}

var defaultOptions = &Options{
	Workers:    4,
	QueueSize:  256,
	MaxRetries: 2,
	RetryDelay: time.Second,
	Verbose:    false,
}

func NewOptions(opts ...Option) *Options {
	options := deepcopy.Copy(defaultOptions).(*Options)
	options.init(opts...)
	return options
}

func (o *Options) init(opts ...Option) {
	for _, opt := range opts {
		if opt != nil {
			opt.Apply(o)
		}
	}
}

// -------------- Async Options ----------------

func WithWorkers(n int) Option {
	return OptionFunc(func(o *Options) {
		if n > 0 {
			o.Workers = n
		}
	})
}

func WithQueueSize(n int) Option {
	return OptionFunc(func(o *Options) {
		if n > 0 {
			o.QueueSize = n
		}
	})
}

// WithMaxRetries sets how many extra attempts a failed invocation gets
// before it is dead-lettered. Zero disables retries.
func WithMaxRetries(n int) Option {
	return OptionFunc(func(o *Options) {
		if n >= 0 {
			o.MaxRetries = n
		}
	})
}

// WithRetryDelay sets the pause before each retry attempt.
func WithRetryDelay(d time.Duration) Option {
	return OptionFunc(func(o *Options) {
		if d >= 0 {
			o.RetryDelay = d
		}
	})
}

func WithVerbose() Option {
	return OptionFunc(func(o *Options) {
		o.Verbose = true
	})
}
