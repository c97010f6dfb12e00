package runner

import (
	"github.com/aura-studio/dynamic"
	"github.com/mohae/deepcopy"
)

type Option interface {
	Apply(o *Options)
}

type OptionFunc func(*Options)

func (f OptionFunc) Apply(o *Options) { f(o) }

// StaticFunction binds a function key to an in-process handler.
type StaticFunction struct {
	Key     string
	Handler HandlerFunc
}

// TunnelFunction binds a function key to a route inside a dynamically
// loaded warehouse package.
type TunnelFunction struct {
	Key     string
	Package string
	Version string
	Route   string
}

// StaticPackage pre-registers a warehouse package with an in-process tunnel,
// bypassing artifact download.
type StaticPackage struct {
	Package string
	Version string
	Tunnel  dynamic.Tunnel
}

type Options struct {
	// Runner Options
	StaticFunctions       []*StaticFunction
	PluginDir             string
	WatchPlugins          bool
	LocalWarehouse        string
	RemoteWarehouse       string
	PackageNamespace      string
	PackageDefaultVersion string
	StaticPackages        []*StaticPackage
	TunnelFunctions       []*TunnelFunction
}

var defaultOptions = &Options{
	StaticFunctions:       []*StaticFunction{},
	PluginDir:             "",
	WatchPlugins:          false,
	LocalWarehouse:        "",
	RemoteWarehouse:       "",
	PackageNamespace:      "",
	PackageDefaultVersion: "",
	StaticPackages:        []*StaticPackage{},
	TunnelFunctions:       []*TunnelFunction{},
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

// -------------- Runner Options ----------------

func WithFunction(key string, handler HandlerFunc) Option {
	return OptionFunc(func(o *Options) {
		o.StaticFunctions = append(o.StaticFunctions, &StaticFunction{Key: key, Handler: handler})
	})
}

func WithPluginDir(dir string) Option {
	return OptionFunc(func(o *Options) {
		o.PluginDir = dir
	})
}

func WithPluginWatch() Option {
	return OptionFunc(func(o *Options) {
		o.WatchPlugins = true
	})
}

func WithWarehouse(local, remote string) Option {
	return OptionFunc(func(o *Options) {
		o.LocalWarehouse = local
		o.RemoteWarehouse = remote
	})
}

func WithNamespace(namespace string) Option {
	return OptionFunc(func(o *Options) {
		o.PackageNamespace = namespace
	})
}

func WithDefaultVersion(version string) Option {
	return OptionFunc(func(o *Options) {
		o.PackageDefaultVersion = version
	})
}

func WithStaticPackage(packageName, version string, tunnel dynamic.Tunnel) Option {
	return OptionFunc(func(o *Options) {
		o.StaticPackages = append(o.StaticPackages, &StaticPackage{
			Package: packageName,
			Version: version,
			Tunnel:  tunnel,
		})
	})
}

func WithTunnelFunction(key, packageName, version, route string) Option {
	return OptionFunc(func(o *Options) {
		o.TunnelFunctions = append(o.TunnelFunctions, &TunnelFunction{
			Key:     key,
			Package: packageName,
			Version: version,
			Route:   route,
		})
	})
}
