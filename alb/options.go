package alb

import (
	"github.com/aura-studio/offline/charset"
	"github.com/aura-studio/offline/dlq"
	"github.com/mohae/deepcopy"
)

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

// Trigger is one HTTP event binding declared for a function. An empty or
// "ANY" method matches every method.
type Trigger struct {
	Method string
	Path   string
}

// Function declares a routable function key and its triggers.
type Function struct {
	Key      string
	Triggers []Trigger
}

type Options struct {
	// ALB Options
	Address         string
	Stage           string
	PrependStage    bool
	CertFile        string
	KeyFile         string
	CorsMode        bool
	Verbose         bool
	HideStackTraces bool
	DeadLetterQueue string
	Redrive         bool
	SQSClient       dlq.SQSClient
	Detect          charset.DetectFunc
	Functions       []*Function
}

var defaultOptions = &Options{
	Address:         ":3000",
	Stage:           "dev",
	PrependStage:    true,
	CertFile:        "",
	KeyFile:         "",
	CorsMode:        false,
	Verbose:         false,
	HideStackTraces: false,
	DeadLetterQueue: "",
	Redrive:         false,
	SQSClient:       nil,
	Detect:          nil,
	Functions:       []*Function{},
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

// -------------- ALB Options ----------------

func WithAddress(addr string) Option {
	return OptionFunc(func(o *Options) {
		o.Address = addr
	})
}

func WithStage(stage string) Option {
	return OptionFunc(func(o *Options) {
		o.Stage = stage
	})
}

func WithStagePrefix(prepend bool) Option {
	return OptionFunc(func(o *Options) {
		o.PrependStage = prepend
	})
}

func WithTLS(certFile, keyFile string) Option {
	return OptionFunc(func(o *Options) {
		o.CertFile = certFile
		o.KeyFile = keyFile
	})
}

func WithCors() Option {
	return OptionFunc(func(o *Options) {
		o.CorsMode = true
	})
}

func WithVerbose() Option {
	return OptionFunc(func(o *Options) {
		o.Verbose = true
	})
}

func WithHideStackTraces() Option {
	return OptionFunc(func(o *Options) {
		o.HideStackTraces = true
	})
}

func WithDeadLetterQueue(queueURL string) Option {
	return OptionFunc(func(o *Options) {
		o.DeadLetterQueue = queueURL
	})
}

// WithRedrive starts a background consumer that replays dead-letter records
// through the registered functions. It requires a dead-letter queue.
func WithRedrive() Option {
	return OptionFunc(func(o *Options) {
		o.Redrive = true
	})
}

func WithSQSClient(client dlq.SQSClient) Option {
	return OptionFunc(func(o *Options) {
		o.SQSClient = client
	})
}

func WithDetectFunc(detect charset.DetectFunc) Option {
	return OptionFunc(func(o *Options) {
		o.Detect = detect
	})
}

func WithFunction(key string, triggers ...Trigger) Option {
	return OptionFunc(func(o *Options) {
		o.Functions = append(o.Functions, &Function{Key: key, Triggers: triggers})
	})
}
